package task

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// Nullable distinguishes a field that was absent from one that was explicitly
// null. Set is true whenever the key was present.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func Value[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n Nullable[T]) IsNull() bool {
	return n.Set && n.Value == nil
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// Patch is a partial update. Only fields with Set are applied; there is no way
// to express a change of id or createdAt.
type Patch struct {
	Title       Nullable[string]
	Description Nullable[string]
	Priority    Nullable[Priority]
	Status      Nullable[Status]
	DueDate     Nullable[time.Time]
	OwnerID     Nullable[string]
	SharedWith  Nullable[[]string]
}

func (p Patch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Priority.Set && !p.Status.Set &&
		!p.DueDate.Set && !p.OwnerID.Set && !p.SharedWith.Set
}

// Options converts the supplied fields into task options. Non-nullable fields
// carrying an explicit null are skipped; the service rejects them before they
// get here.
func (p Patch) Options() []TaskOption {
	var options []TaskOption
	if p.Title.Value != nil {
		options = append(options, WithTitle(*p.Title.Value))
	}
	if p.Description.Set {
		options = append(options, WithDescription(p.Description.Value))
	}
	if p.Priority.Value != nil {
		options = append(options, WithPriority(*p.Priority.Value))
	}
	if p.Status.Value != nil {
		options = append(options, WithStatus(*p.Status.Value))
	}
	if p.DueDate.Set {
		options = append(options, WithDueDate(p.DueDate.Value))
	}
	if p.OwnerID.Value != nil {
		options = append(options, WithOwner(*p.OwnerID.Value))
	}
	if p.SharedWith.Value != nil {
		options = append(options, WithSharedWith(*p.SharedWith.Value))
	}
	return options
}

func (p Patch) Apply(t *Task) {
	for _, opt := range p.Options() {
		opt(t)
	}
}

// AddedShares returns the emails present in the patch but not in before.
func (p Patch) AddedShares(before []string) []string {
	if p.SharedWith.Value == nil {
		return nil
	}
	var added []string
	for _, email := range *p.SharedWith.Value {
		if !slices.Contains(before, email) && !slices.Contains(added, email) {
			added = append(added, email)
		}
	}
	return added
}
