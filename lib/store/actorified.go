package store

import (
	"context"
	"time"

	"github.com/SeshatHQ/seshat/internal/actorify"
)

type unit struct{}

type setReq struct {
	key    string
	value  []byte
	expiry time.Duration
}

type incrReq struct {
	key   string
	delta int64
}

// ActorifiedStore funnels every operation of a backend through one actor per
// operation, so backends that dislike concurrent callers (bbolt holds a
// single write transaction at a time) see strictly serialized traffic.
// Atomicity of Increment is unchanged; this only removes contention.
type ActorifiedStore struct {
	Interface

	getActor    *actorify.Actor[string, []byte]
	setActor    *actorify.Actor[setReq, unit]
	deleteActor *actorify.Actor[string, unit]
	incrActor   *actorify.Actor[incrReq, int64]
	getIntActor *actorify.Actor[string, int64]
	cancel      context.CancelFunc
}

var _ Interface = (*ActorifiedStore)(nil)

// NewActorifiedStore wraps backend. Call Close when done to stop the actors.
func NewActorifiedStore(backend Interface) *ActorifiedStore {
	ctx, cancel := context.WithCancel(context.Background())

	result := &ActorifiedStore{
		Interface: backend,
		cancel:    cancel,
	}

	result.getActor = actorify.New(ctx, backend.Get)
	result.setActor = actorify.New(ctx, result.actorSet)
	result.deleteActor = actorify.New(ctx, result.actorDelete)
	result.incrActor = actorify.New(ctx, result.actorIncrement)
	result.getIntActor = actorify.New(ctx, backend.GetInt)

	return result
}

func (a *ActorifiedStore) Close() { a.cancel() }

func (a *ActorifiedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return a.getActor.Call(ctx, key)
}

func (a *ActorifiedStore) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	_, err := a.setActor.Call(ctx, setReq{key: key, value: value, expiry: expiry})
	return err
}

func (a *ActorifiedStore) Delete(ctx context.Context, key string) error {
	_, err := a.deleteActor.Call(ctx, key)
	return err
}

func (a *ActorifiedStore) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return a.incrActor.Call(ctx, incrReq{key: key, delta: delta})
}

func (a *ActorifiedStore) GetInt(ctx context.Context, key string) (int64, error) {
	return a.getIntActor.Call(ctx, key)
}

func (a *ActorifiedStore) actorSet(ctx context.Context, req setReq) (unit, error) {
	return unit{}, a.Interface.Set(ctx, req.key, req.value, req.expiry)
}

func (a *ActorifiedStore) actorDelete(ctx context.Context, key string) (unit, error) {
	return unit{}, a.Interface.Delete(ctx, key)
}

func (a *ActorifiedStore) actorIncrement(ctx context.Context, req incrReq) (int64, error) {
	return a.Interface.Increment(ctx, req.key, req.delta)
}
