package models

import "time"

const (
	RelationshipBlock = "block"
	RelationshipMute  = "mute"
)

// Relationship stores a one-directional block or mute edge. Blocked and
// muted authors are excluded from the actor's timeline; a block additionally
// hides the actor's posts from the target.
type Relationship struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `gorm:"index:ux_relationships_edge,unique,priority:1" json:"actor_id"`
	TargetID  uint      `gorm:"index:ux_relationships_edge,unique,priority:2" json:"target_id"`
	Kind      string    `gorm:"type:varchar(10);not null;index:ux_relationships_edge,unique,priority:3" json:"kind" validate:"oneof=block mute"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
