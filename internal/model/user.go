package model

import (
	"fmt"
	"time"
)

type Team string

const (
	TeamBlue    Team = "BLUE"
	TeamRed     Team = "RED"
	TeamYellow  Team = "YELLOW"
	TeamUnknown Team = "UNKNOWN"
)

// Teams lists the teams a user can choose.
var Teams = []Team{TeamBlue, TeamRed, TeamYellow}

// ParseTeam accepts one of Teams. An empty string maps to TeamUnknown.
func ParseTeam(s string) (Team, error) {
	if s == "" {
		return TeamUnknown, nil
	}
	for _, t := range Teams {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown team %q", s)
}

const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	DiscordID *string   `json:"discord_id"`
	Team      Team      `json:"team"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserUpdate holds the mutable user fields. Nil fields are left unchanged.
// Email, team and role are not editable here.
type UserUpdate struct {
	FirstName *string `json:"first_name"`
	DiscordID *string `json:"discord_id"`
}
