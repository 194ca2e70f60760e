package migrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lattisimo/posher-v/internal/testutil"
	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/util"
)

func newTestCoordinator(t *testing.T, cluster *testutil.FakeCluster, policy PollPolicy) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(context.Background(), cluster, policy)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	c.sleep = func(time.Duration) {}
	return c
}

func TestCoordinatorStandaloneIsNoop(t *testing.T) {
	cluster := &testutil.FakeCluster{Clustered: false}
	c := newTestCoordinator(t, cluster, PollPolicy{})

	if err := c.DrainIfClustered(context.Background()); err != nil {
		t.Fatalf("DrainIfClustered: %v", err)
	}
	if err := c.ResumeIfClustered(context.Background()); err != nil {
		t.Fatalf("ResumeIfClustered: %v", err)
	}
	if cluster.DrainCalls != 0 || cluster.ResumeCalls != 0 {
		t.Errorf("drain/resume = %d/%d on a standalone host, want 0/0", cluster.DrainCalls, cluster.ResumeCalls)
	}
	if c.Clustered() {
		t.Error("Clustered() = true on a standalone host")
	}
}

func TestCoordinatorDrainPollsToCompletion(t *testing.T) {
	cluster := &testutil.FakeCluster{
		Clustered: true,
		NodeName:  "HV03",
		Statuses: []hyperv.DrainStatus{
			hyperv.DrainInProgress,
			hyperv.DrainInProgress,
			hyperv.DrainCompleted,
		},
	}
	c := newTestCoordinator(t, cluster, PollPolicy{Timeout: time.Minute})

	if err := c.DrainIfClustered(context.Background()); err != nil {
		t.Fatalf("DrainIfClustered: %v", err)
	}
	if cluster.DrainCalls != 1 {
		t.Errorf("DrainCalls = %d, want 1", cluster.DrainCalls)
	}
	if cluster.StatusCalls != 3 {
		t.Errorf("StatusCalls = %d, want 3", cluster.StatusCalls)
	}
	if c.Node() != "HV03" {
		t.Errorf("Node() = %q", c.Node())
	}
}

func TestCoordinatorDrainTerminalFailure(t *testing.T) {
	tests := []struct {
		name   string
		status hyperv.DrainStatus
	}{
		{"drain failed", hyperv.DrainFailed},
		{"drain never started", hyperv.DrainNotInitiated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cluster := &testutil.FakeCluster{
				Clustered: true,
				NodeName:  "HV03",
				Statuses:  []hyperv.DrainStatus{tt.status},
			}
			c := newTestCoordinator(t, cluster, PollPolicy{Timeout: time.Minute})
			err := c.DrainIfClustered(context.Background())
			if !errors.Is(err, util.ErrDrainFailed) {
				t.Fatalf("err = %v, want drain failure", err)
			}
		})
	}
}

func TestCoordinatorDrainInitiationError(t *testing.T) {
	cluster := &testutil.FakeCluster{
		Clustered: true,
		NodeName:  "HV03",
		DrainErr:  errors.New("access denied"),
	}
	c := newTestCoordinator(t, cluster, PollPolicy{})

	err := c.DrainIfClustered(context.Background())
	if !errors.Is(err, util.ErrDrainFailed) {
		t.Fatalf("err = %v, want drain failure", err)
	}
	if cluster.StatusCalls != 0 {
		t.Error("status polled after drain initiation failed")
	}
}

func TestCoordinatorDrainTimeout(t *testing.T) {
	cluster := &testutil.FakeCluster{
		Clustered: true,
		NodeName:  "HV03",
		Statuses:  []hyperv.DrainStatus{hyperv.DrainInProgress},
	}
	c := newTestCoordinator(t, cluster, PollPolicy{Timeout: time.Nanosecond})

	err := c.DrainIfClustered(context.Background())
	if !errors.Is(err, util.ErrDrainTimeout) {
		t.Fatalf("err = %v, want drain timeout", err)
	}
	if errors.Is(err, util.ErrDrainFailed) {
		t.Error("timeout must be distinguishable from a failed drain")
	}
}

func TestCoordinatorDrainStatusError(t *testing.T) {
	cluster := &testutil.FakeCluster{
		Clustered: true,
		NodeName:  "HV03",
		StatusErr: errors.New("wmi namespace gone"),
	}
	c := newTestCoordinator(t, cluster, PollPolicy{})

	if err := c.DrainIfClustered(context.Background()); !errors.Is(err, util.ErrDrainFailed) {
		t.Fatalf("err = %v, want drain failure", err)
	}
}

func TestCoordinatorDrainHonorsContext(t *testing.T) {
	cluster := &testutil.FakeCluster{
		Clustered: true,
		NodeName:  "HV03",
		Statuses:  []hyperv.DrainStatus{hyperv.DrainInProgress},
	}
	c := newTestCoordinator(t, cluster, PollPolicy{}) // no timeout: unbounded wait

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.DrainIfClustered(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context cancellation", err)
	}
}

func TestCoordinatorMembershipDetectionError(t *testing.T) {
	cluster := &testutil.FakeCluster{NodeErr: errors.New("powershell crashed")}
	if _, err := NewCoordinator(context.Background(), cluster, PollPolicy{}); err == nil {
		t.Fatal("expected error when membership cannot be determined")
	}
}

func TestCoordinatorResumeError(t *testing.T) {
	cluster := &testutil.FakeCluster{
		Clustered: true,
		NodeName:  "HV03",
		ResumeErr: errors.New("quorum lost"),
	}
	c := newTestCoordinator(t, cluster, PollPolicy{})
	if err := c.ResumeIfClustered(context.Background()); err == nil {
		t.Fatal("expected resume error to surface")
	}
}
