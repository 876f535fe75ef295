package domain

import "time"

// Project agrupa a los usuarios que colaboran sobre un mismo workspace.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserIDs   []string  `json:"users"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMember indica si el usuario pertenece al proyecto.
func (p Project) HasMember(userID string) bool {
	for _, id := range p.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
