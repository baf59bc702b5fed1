package editlogs

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ActorField is the field every mutation stamps with the acting user. A diff
// that only touches it is not worth an entry.
const ActorField = "lastUpdatedBy"

// Who identifies the actor of a mutation as it was at write time.
type Who struct {
	ID    string   `bson:"id" json:"id"`
	Name  string   `bson:"name" json:"name"`
	Roles []string `bson:"roles" json:"roles"`
}

// Entry is one persisted edit-log document. Entries are append-only.
type Entry struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Model  string             `bson:"model" json:"model"`
	Item   primitive.ObjectID `bson:"item" json:"item"`
	Date   time.Time          `bson:"date" json:"date"`
	Action string             `bson:"action" json:"action"`
	Data   map[string]any     `bson:"data,omitempty" json:"data,omitempty"`
	Diff   []Change           `bson:"diff,omitempty" json:"diff,omitempty"`
	Who    Who                `bson:"who" json:"who"`
	WhoID  primitive.ObjectID `bson:"whoID,omitempty" json:"whoID,omitempty"`
	Seq    int64              `bson:"seq" json:"seq"`
}
