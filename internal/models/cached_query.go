package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QueryTypeComponentSearch tags cache entries produced by catalog search.
const QueryTypeComponentSearch = "component_search"

// CachedQuery is a memoized catalog read. It is valid while
// now - Timestamp < TTL and is never invalidated by catalog writes.
type CachedQuery struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	QueryType   string             `bson:"query_type" json:"query_type"`
	QueryKey    string             `bson:"query_key" json:"query_key"`
	QueryParams ComponentFilter    `bson:"query_params" json:"query_params"`
	Results     []Component        `bson:"results" json:"results"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
}

// Fresh reports whether the entry is still inside ttl at now.
func (q CachedQuery) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(q.Timestamp) < ttl
}
