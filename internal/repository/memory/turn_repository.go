package memory

import (
	"time"

	"ai-learnpath-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type TurnRepository struct {
	cache *cache.Cache
}

func NewTurnRepository() *TurnRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &TurnRepository{
		cache: c,
	}
}

func (r *TurnRepository) Save(turn *store.Turn) {
	r.cache.Set(turn.ID, turn, cache.DefaultExpiration)
}

func (r *TurnRepository) Get(sessionID string) (*store.Turn, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Turn), true
	}
	return nil, false
}

func (r *TurnRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
