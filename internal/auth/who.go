package auth

import (
	"context"
	"errors"

	"rim/internal/editlogs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Directory resolves edit-log actors from the user accounts.
type Directory struct {
	users Users
}

func NewDirectory(users Users) *Directory {
	return &Directory{users: users}
}

func (d *Directory) FindWho(ctx context.Context, id string) (editlogs.Who, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return editlogs.Who{}, editlogs.ErrUserNotFound
	}

	u, err := d.users.ByID(ctx, oid)
	if errors.Is(err, ErrUserNotFound) {
		return editlogs.Who{}, editlogs.ErrUserNotFound
	}
	if err != nil {
		return editlogs.Who{}, err
	}

	return editlogs.Who{
		ID:    id,
		Name:  u.Name,
		Roles: u.Caller().Roles(),
	}, nil
}
