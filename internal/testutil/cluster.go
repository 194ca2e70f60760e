package testutil

import (
	"context"

	"github.com/lattisimo/posher-v/pkg/hyperv"
)

// FakeCluster implements hyperv.Cluster. Statuses is consumed one poll at a
// time; the final entry repeats once exhausted.
type FakeCluster struct {
	Clustered bool
	NodeName  string

	NodeErr   error
	DrainErr  error
	ResumeErr error
	StatusErr error

	Statuses []hyperv.DrainStatus

	DrainCalls  int
	ResumeCalls int
	StatusCalls int
	statusIdx   int
}

// Node implements hyperv.Cluster.
func (f *FakeCluster) Node(ctx context.Context) (string, bool, error) {
	if f.NodeErr != nil {
		return "", false, f.NodeErr
	}
	return f.NodeName, f.Clustered, nil
}

// Drain implements hyperv.Cluster.
func (f *FakeCluster) Drain(ctx context.Context, node string) error {
	f.DrainCalls++
	return f.DrainErr
}

// Resume implements hyperv.Cluster.
func (f *FakeCluster) Resume(ctx context.Context, node string) error {
	f.ResumeCalls++
	return f.ResumeErr
}

// Status implements hyperv.Cluster.
func (f *FakeCluster) Status(ctx context.Context, node string) (hyperv.DrainStatus, error) {
	f.StatusCalls++
	if f.StatusErr != nil {
		return hyperv.DrainNotInitiated, f.StatusErr
	}
	if len(f.Statuses) == 0 {
		return hyperv.DrainCompleted, nil
	}
	status := f.Statuses[f.statusIdx]
	if f.statusIdx < len(f.Statuses)-1 {
		f.statusIdx++
	}
	return status, nil
}
