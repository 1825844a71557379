package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BuildComponent is the price snapshot of a part stored inside a build.
type BuildComponent struct {
	Type      string  `bson:"type" json:"type"`
	ModelName string  `bson:"modelName" json:"modelName"`
	Price     float64 `bson:"price" json:"price"`
}

// Build is one priced part list. TotalPrice is fixed at creation and is not
// recomputed when catalog prices change.
type Build struct {
	BuildID     string           `bson:"buildId" json:"buildId"`
	Components  []BuildComponent `bson:"components" json:"components"`
	TotalPrice  float64          `bson:"totalPrice" json:"totalPrice"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
	ExpiresAt   time.Time        `bson:"expiresAt" json:"expiresAt"`
	AIGenerated bool             `bson:"aiGenerated" json:"aiGenerated"`
}

// Expired reports whether the build is past its expiry at now.
func (b Build) Expired(now time.Time) bool {
	return b.ExpiresAt.Before(now)
}

// SessionBuild groups the builds of one session. It is read and written as a
// whole document.
type SessionBuild struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"sessionId" json:"sessionId"`
	Builds    []Build            `bson:"builds" json:"builds"`
}

// FindBuild returns the index of buildID, or -1.
func (s *SessionBuild) FindBuild(buildID string) int {
	for i := range s.Builds {
		if s.Builds[i].BuildID == buildID {
			return i
		}
	}
	return -1
}

// Upsert replaces the build with the same id or appends it.
func (s *SessionBuild) Upsert(build Build) {
	if i := s.FindBuild(build.BuildID); i >= 0 {
		s.Builds[i] = build
		return
	}
	s.Builds = append(s.Builds, build)
}

// Remove drops buildID and reports whether it was present.
func (s *SessionBuild) Remove(buildID string) bool {
	i := s.FindBuild(buildID)
	if i < 0 {
		return false
	}
	s.Builds = append(s.Builds[:i], s.Builds[i+1:]...)
	return true
}

// AllExpired reports whether no build in the session is still live at now.
// An empty session counts as expired.
func (s *SessionBuild) AllExpired(now time.Time) bool {
	for _, b := range s.Builds {
		if !b.Expired(now) {
			return false
		}
	}
	return true
}
