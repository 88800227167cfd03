package benchmark

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
)

// feedProfile is the record stored under a user's profile key
type feedProfile struct {
	UserID  uint64
	Handle  string
	Created uint64
}

// feedPost is the record stored under a post key
type feedPost struct {
	UserID uint64
	Seq    uint64
	Body   []byte
}

// FeedWorkload models a multi-tenant social feed. Every user has a profile
// key u<uid>p and posts u<uid>t<seq>, so a user's newest posts are a reverse
// prefix scan over u<uid>t. Users are picked from a Zipfian distribution.
type FeedWorkload struct {
	config WorkloadConfig
	users  *Zipf
	seq    atomic.Uint64
}

const feedPostRatio = 0.1

func newFeedWorkload(cfg WorkloadConfig) (*FeedWorkload, error) {
	users, err := NewZipf(cfg.Users, cfg.ZipfExponent)
	if err != nil {
		return nil, err
	}
	return &FeedWorkload{
		config: cfg,
		users:  users,
	}, nil
}

func (w *FeedWorkload) Name() string {
	return string(WorkloadFeed)
}

func (w *FeedWorkload) GetDescription() string {
	return fmt.Sprintf("Multi-tenant feed of %d users, 10%% post and 90%% read profile then newest %d posts",
		w.config.Users, w.config.FeedPosts)
}

func userPrefix(uid uint64, kind byte) []byte {
	key := make([]byte, 0, 18)
	key = append(key, 'u')
	key = binary.BigEndian.AppendUint64(key, uid)
	return append(key, kind)
}

func profileKey(uid uint64) []byte {
	return userPrefix(uid, 'p')
}

func postKey(uid, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(userPrefix(uid, 't'), seq)
}

func (w *FeedWorkload) Prepopulate(store *Store, stop *StopToken) error {
	for uid := uint64(0); uid < w.config.Users; uid++ {
		if uid%prepopulateCheckEvery == 0 && stop.IsSignaled() {
			return nil
		}
		value, err := rlp.EncodeToBytes(&feedProfile{
			UserID:  uid,
			Handle:  fmt.Sprintf("user-%d", uid),
			Created: uid,
		})
		if err != nil {
			return fmt.Errorf("failed to encode profile: %w", err)
		}
		if err := store.Insert(profileKey(uid), value, w.config.Durable); err != nil {
			return err
		}
	}
	return nil
}

func (w *FeedWorkload) NewWorker(id int) Worker {
	return &feedWorker{
		workload: w,
		rng:      workerRand(w.config.Seed, id),
		body:     make([]byte, w.config.ValueSize),
	}
}

type feedWorker struct {
	workload *FeedWorkload
	rng      *rand.Rand
	body     []byte

	// set after a profile read, the next step reads that user's feed
	pendingFeed bool
	pendingUser uint64
}

func (w *feedWorker) Step(store *Store) error {
	wl := w.workload

	if w.pendingFeed {
		w.pendingFeed = false
		_, err := store.Prefix(userPrefix(w.pendingUser, 't'), true, wl.config.FeedPosts)
		return err
	}

	uid := wl.users.Next(w.rng)

	if w.rng.Float64() < feedPostRatio {
		post := feedPost{
			UserID: uid,
			Seq:    wl.seq.Add(1),
			Body:   generateValue(w.rng, w.body),
		}
		value, err := rlp.EncodeToBytes(&post)
		if err != nil {
			return fmt.Errorf("failed to encode post: %w", err)
		}
		return store.Insert(postKey(uid, post.Seq), value, wl.config.Durable)
	}

	value, found, err := store.Get(profileKey(uid))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: profile of user %d not found", ErrInvariant, uid)
	}
	var profile feedProfile
	if err := rlp.DecodeBytes(value, &profile); err != nil {
		return fmt.Errorf("%w: profile of user %d: %v", ErrInvariant, uid, err)
	}
	if profile.UserID != uid {
		return fmt.Errorf("%w: profile of user %d holds user %d", ErrInvariant, uid, profile.UserID)
	}

	w.pendingFeed = true
	w.pendingUser = uid
	return nil
}
