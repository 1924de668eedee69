package models

// User is the acting principal of an execution. Roles are matched against an
// action's (possibly %path-resolved) role list.
type User struct {
	Key      string   `json:"_key,omitempty"`
	UserName string   `json:"userName"`
	Roles    []string `json:"roles"`
}
