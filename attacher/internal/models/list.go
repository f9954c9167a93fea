package models

import (
	"slices"

	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// ClusterList is an unordered collection of clusters
type ClusterList []Cluster

// Equal reports whether l and other hold the same clusters, ignoring order.
// Both lists are compared as multisets of fully equal records.
func (l ClusterList) Equal(other ClusterList) bool {
	if len(l) != len(other) {
		return false
	}

	left := l.sortedByUUID()
	right := other.sortedByUUID()
	for i := range left {
		if !left[i].Equal(right[i]) {
			return false
		}
	}
	return true
}

func (l ClusterList) sortedByUUID() ClusterList {
	sorted := slices.Clone(l)
	slices.SortFunc(sorted, compareUUID)
	return sorted
}

// Clone returns a deep copy of the list. A nil list clones to an empty one.
func (l ClusterList) Clone() ClusterList {
	result := make(ClusterList, 0, len(l))
	for _, cluster := range l {
		result = append(result, cluster.Clone())
	}
	return result
}

// Find returns the cluster with the given uuid
func (l ClusterList) Find(uuid types.ClusterUUID) (Cluster, bool) {
	for _, cluster := range l {
		if cluster.UUID == uuid {
			return cluster, true
		}
	}
	return Cluster{}, false
}

// Running returns the clusters a kernel can be attached to
func (l ClusterList) Running() ClusterList {
	return l.Filter(func(c Cluster) bool { return c.Status.IsRunning() })
}

// Filter returns the clusters for which keep returns true
func (l ClusterList) Filter(keep func(Cluster) bool) ClusterList {
	result := make(ClusterList, 0, len(l))
	for _, cluster := range l {
		if keep(cluster) {
			result = append(result, cluster)
		}
	}
	return result
}

// SortedByStatus returns a copy ordered with CompareStatus. Ties keep their
// relative order.
func (l ClusterList) SortedByStatus() ClusterList {
	sorted := l.Clone()
	slices.SortStableFunc(sorted, CompareStatus)
	return sorted
}

// CountByStatus returns how many clusters are in each status
func (l ClusterList) CountByStatus() map[Status]int {
	counts := make(map[Status]int, len(AllStatuses))
	for _, cluster := range l {
		counts[cluster.Status]++
	}
	return counts
}
