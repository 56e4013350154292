package fedlearn

import (
	"fmt"
	"math/rand"

	"github.com/hafsaghannaj/maternal/internal/common"
	"github.com/hafsaghannaj/maternal/internal/model"
)

// PartitionSamples splits the training set into hospitalCount disjoint shards
// whose union is exactly the input. The seeded shuffle makes the split
// deterministic for reproducible runs. Shard sizes differ by at most one; the
// remainder spills into the leading shards.
func PartitionSamples(samples []model.Sample, hospitalCount int, seed int64) ([]*model.Shard, error) {
	if hospitalCount < 1 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("hospital count must be at least 1, got %d", hospitalCount)}
	}
	if hospitalCount > len(samples) {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("hospital count %d exceeds dataset size %d, a shard would be empty", hospitalCount, len(samples)),
		}
	}

	shuffled := make([]model.Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	base := len(shuffled) / hospitalCount
	remainder := len(shuffled) % hospitalCount

	shards := make([]*model.Shard, hospitalCount)
	offset := 0
	for i := 0; i < hospitalCount; i++ {
		size := base
		if i < remainder {
			size++
		}
		shards[i] = &model.Shard{
			HospitalID: common.HospitalID(i),
			Samples:    shuffled[offset : offset+size],
		}
		offset += size
	}

	return shards, nil
}
