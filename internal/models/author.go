package models

import (
	"encoding/json"
	"fmt"
)

// Author is the record author, polymorphic over two persisted shapes:
// a bare string ("alice") or a structured object ({"name": ..., "email": ...}).
// A value parsed from a bare string round-trips back to a bare string.
type Author struct {
	Name  string
	Email string

	plain bool
}

// PlainAuthor returns an Author that serializes as a bare string.
func PlainAuthor(name string) Author {
	return Author{Name: name, plain: true}
}

// StructuredAuthor returns an Author that serializes as a name/email object.
func StructuredAuthor(name, email string) Author {
	return Author{Name: name, Email: email}
}

// IsZero reports whether no author information is present.
func (a Author) IsZero() bool {
	return a.Name == "" && a.Email == ""
}

// Display is the single normalization point for rendering an author.
func (a Author) Display() string {
	switch {
	case a.Name != "" && a.Email != "":
		return fmt.Sprintf("%s <%s>", a.Name, a.Email)
	case a.Name != "":
		return a.Name
	default:
		return a.Email
	}
}

type structuredAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// MarshalJSON writes the shape the value was created with.
func (a Author) MarshalJSON() ([]byte, error) {
	if a.plain || (a.Email == "" && a.Name == "") {
		return json.Marshal(a.Name)
	}
	return json.Marshal(structuredAuthor{Name: a.Name, Email: a.Email})
}

// UnmarshalJSON accepts either a bare string or a name/email object.
func (a *Author) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Author{Name: s, plain: true}
		return nil
	}
	var obj structuredAuthor
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("models: author is neither string nor object: %w", err)
	}
	*a = Author{Name: obj.Name, Email: obj.Email}
	return nil
}
