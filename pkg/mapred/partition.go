package mapred

import "hash/fnv"

// HashPartition assigns record keys to reduce partitions by hash.
// Every occurrence of a key lands in the same partition, which is
// what guarantees one reduce invocation sees all values for a key.
type HashPartition struct {
	partitionCount int
}

// NewHashPartition creates a hash-based partitioning strategy.
func NewHashPartition(partitionCount int) *HashPartition {
	if partitionCount <= 0 {
		partitionCount = 1
	}
	return &HashPartition{
		partitionCount: partitionCount,
	}
}

// GetPartition returns which partition a key belongs to.
func (hp *HashPartition) GetPartition(key string) int {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(hp.partitionCount))
}

// GetPartitionCount returns the total number of partitions.
func (hp *HashPartition) GetPartitionCount() int {
	return hp.partitionCount
}
