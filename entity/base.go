package entity

import "reflect"

// Interface is implemented by every stored entity through an embedded Base.
type Interface interface {
	GetID() string
	Exists() bool
	SetExists(bool)
}

// Indexed entities expose secondary index values queried with field equality.
// Indexed values must not change once the entity is first saved.
type Indexed interface {
	Indexes() map[string]string
}

type Base struct {
	ID string `json:"id"`

	exists bool
}

func NewBase(id string) Base {
	return Base{ID: id}
}

func (b *Base) GetID() string {
	return b.ID
}

// Exists reports whether the entity was found in the store when loaded.
func (b *Base) Exists() bool {
	return b.exists
}

func (b *Base) SetExists(exists bool) {
	b.exists = exists
}

// TypeName is the store type of an entity, its struct name.
func TypeName(ent Interface) string {
	t := reflect.TypeOf(ent)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
