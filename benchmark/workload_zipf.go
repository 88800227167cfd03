package benchmark

import (
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZipfWorkload pre-populates a fixed key space and then mixes overwrites and
// point reads, picking keys from a Zipfian distribution (YCSB A, B and C)
type ZipfWorkload struct {
	config      WorkloadConfig
	name        string
	description string
	writeRatio  float64
	zipf        *Zipf
}

func newZipfWorkload(cfg WorkloadConfig, writeRatio float64, description string) (*ZipfWorkload, error) {
	zipf, err := NewZipf(cfg.Items, cfg.ZipfExponent)
	if err != nil {
		return nil, err
	}
	return &ZipfWorkload{
		config:      cfg,
		name:        string(cfg.Type),
		description: description,
		writeRatio:  writeRatio,
		zipf:        zipf,
	}, nil
}

func (w *ZipfWorkload) Name() string {
	return w.name
}

func (w *ZipfWorkload) GetDescription() string {
	if w.config.HashKeys {
		return w.description + " (Keccak-256 hashed keys)"
	}
	return w.description
}

// key returns the 8-byte big-endian index, or its 32-byte Keccak-256 hash
// which scatters neighbouring indices over the whole key space
func (w *ZipfWorkload) key(index uint64) []byte {
	raw := binary.BigEndian.AppendUint64(make([]byte, 0, 8), index)
	if w.config.HashKeys {
		return crypto.Keccak256(raw)
	}
	return raw
}

func (w *ZipfWorkload) Prepopulate(store *Store, stop *StopToken) error {
	rng := rand.New(rand.NewSource(w.config.Seed))
	value := make([]byte, w.config.ValueSize)

	for i := uint64(0); i < w.config.Items; i++ {
		if i%prepopulateCheckEvery == 0 && stop.IsSignaled() {
			return nil
		}
		if err := store.Insert(w.key(i), generateValue(rng, value), w.config.Durable); err != nil {
			return err
		}
	}
	return nil
}

func (w *ZipfWorkload) NewWorker(id int) Worker {
	return &zipfWorker{
		workload: w,
		rng:      workerRand(w.config.Seed, id),
		value:    make([]byte, w.config.ValueSize),
	}
}

type zipfWorker struct {
	workload *ZipfWorkload
	rng      *rand.Rand
	value    []byte
}

func (w *zipfWorker) Step(store *Store) error {
	index := w.workload.zipf.Next(w.rng)
	key := w.workload.key(index)

	if w.rng.Float64() < w.workload.writeRatio {
		return store.Insert(key, generateValue(w.rng, w.value), w.workload.config.Durable)
	}

	_, found, err := store.Get(key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: pre-populated key %d not found", ErrInvariant, index)
	}
	return nil
}
