package value

import (
	"fmt"
	"sync"
)

// UserObject is the capability contract a host object must implement to be
// visible to scripts. Get returns false for unknown fields; Set and Call
// report failures as plain errors, which surface to the script as catchable
// runtime errors.
type UserObject interface {
	TypeName() string
	Get(field string) (Value, bool)
	Set(field string, val Value) error
	Call(method string, args []Value) (Value, error)
}

// UserDataVal wraps a host object as a script value. Every get/set/call is
// serialized through the object's mutex so the single-writer discipline
// holds even when the host touches the object from another goroutine.
type UserDataVal struct {
	mu  sync.Mutex
	obj UserObject
}

// NewUserData wraps a host object for injection into an interpreter.
func NewUserData(obj UserObject) *UserDataVal {
	return &UserDataVal{obj: obj}
}

func (v *UserDataVal) TypeName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.obj.TypeName()
}

func (v *UserDataVal) String() string {
	return fmt.Sprintf("<%s>", v.TypeName())
}

// Get reads a field through the host's get capability.
func (v *UserDataVal) Get(field string) (Value, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.obj.Get(field)
}

// Set writes a field through the host's set capability.
func (v *UserDataVal) Set(field string, val Value) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.obj.Set(field, val)
}

// Call invokes a method through the host's call capability. A nil result
// is reported to the script as null.
func (v *UserDataVal) Call(method string, args []Value) (Value, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.obj.Call(method, args)
}
