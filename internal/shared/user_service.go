package shared

import "github.com/google/uuid"

func (u *User) GetID() uuid.UUID { return u.ID }

func (u *User) GetEmail() string { return u.Email }

func (u *User) GetGroups() []string { return u.Groups }
