// README: Ride detail cache backed by Redis (terminal rides only).
package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetops/internal/types"
)

const (
	rideDetailKeyPrefix = "fleet:ride:%d:detail"
	// Finished rides are re-read by billing runs over the same days; a day is plenty.
	rideDetailTTL = 24 * time.Hour
)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) GetRide(ctx context.Context, id types.ID) (Ride, bool, error) {
	val, err := s.redis.Get(ctx, rideDetailKey(id)).Bytes()
	if err == redis.Nil {
		return Ride{}, false, nil
	}
	if err != nil {
		return Ride{}, false, err
	}
	var r Ride
	if err := json.Unmarshal(val, &r); err != nil {
		return Ride{}, false, err
	}
	return r, true, nil
}

// PutRide ignores rides that may still change.
func (s *Store) PutRide(ctx context.Context, ride Ride) error {
	if !ride.Status.IsTerminal() || ride.ID == 0 {
		return nil
	}
	b, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, rideDetailKey(ride.ID), b, rideDetailTTL).Err()
}

func rideDetailKey(id types.ID) string {
	return fmt.Sprintf(rideDetailKeyPrefix, int64(id))
}
