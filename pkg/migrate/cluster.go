package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/util"
)

// PollPolicy controls the drain status poll loop. Interval is the fixed
// delay between polls; Timeout bounds the whole wait, with 0 meaning wait
// forever (a permanently stuck drain then spins until the operator kills
// the run).
type PollPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultPollPolicy polls every second and gives a drain fifteen minutes to
// complete before declaring it stuck.
var DefaultPollPolicy = PollPolicy{
	Interval: time.Second,
	Timeout:  15 * time.Minute,
}

// Coordinator drains the local cluster node before the batch tears any
// networking down and resumes it afterwards. Membership is resolved once,
// at construction, and never re-read mid-run.
type Coordinator struct {
	cluster hyperv.Cluster
	policy  PollPolicy

	node      string
	clustered bool
	drained   bool

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// NewCoordinator resolves cluster membership and returns a coordinator.
func NewCoordinator(ctx context.Context, cluster hyperv.Cluster, policy PollPolicy) (*Coordinator, error) {
	if policy.Interval <= 0 {
		policy.Interval = DefaultPollPolicy.Interval
	}
	node, clustered, err := cluster.Node(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect cluster membership: %w", err)
	}
	return &Coordinator{
		cluster:   cluster,
		policy:    policy,
		node:      node,
		clustered: clustered,
		sleep:     time.Sleep,
	}, nil
}

// Clustered reports whether the host is a cluster member.
func (c *Coordinator) Clustered() bool {
	return c.clustered
}

// Node returns the local cluster node name ("" when not clustered).
func (c *Coordinator) Node() string {
	return c.node
}

// DrainIfClustered drains the node when the host is a cluster member and
// waits for the drain to reach a terminal state. Any failure here is fatal
// to the whole run: destructive work must not start on an undrained node.
func (c *Coordinator) DrainIfClustered(ctx context.Context) error {
	if !c.clustered {
		return nil
	}

	log := util.WithField("node", c.node)
	log.Info("draining cluster node before migration")

	if err := c.cluster.Drain(ctx, c.node); err != nil {
		return fmt.Errorf("%w: initiating drain on %s: %v", util.ErrDrainFailed, c.node, err)
	}
	c.drained = true

	deadline := time.Time{}
	if c.policy.Timeout > 0 {
		deadline = time.Now().Add(c.policy.Timeout)
	}

	for {
		status, err := c.cluster.Status(ctx, c.node)
		if err != nil {
			return fmt.Errorf("%w: polling drain status on %s: %v", util.ErrDrainFailed, c.node, err)
		}
		switch status {
		case hyperv.DrainCompleted:
			log.Info("cluster node drained")
			return nil
		case hyperv.DrainFailed:
			return fmt.Errorf("%w: node %s failed to drain its roles", util.ErrDrainFailed, c.node)
		case hyperv.DrainNotInitiated:
			return fmt.Errorf("%w: drain on %s never started", util.ErrDrainFailed, c.node)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("%w: node %s still draining after %s", util.ErrDrainTimeout, c.node, c.policy.Timeout)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		c.sleep(c.policy.Interval)
	}
}

// ResumeIfClustered resumes the node whenever the host is a cluster member,
// regardless of per-switch outcomes: workloads must never be left stranded
// off the node because part of the migration failed.
func (c *Coordinator) ResumeIfClustered(ctx context.Context) error {
	if !c.clustered {
		return nil
	}
	util.WithField("node", c.node).Info("resuming cluster node")
	if err := c.cluster.Resume(ctx, c.node); err != nil {
		return fmt.Errorf("resuming node %s: %w", c.node, err)
	}
	return nil
}
