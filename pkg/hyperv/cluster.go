package hyperv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lattisimo/posher-v/pkg/util"
)

// PowerShellCluster implements Cluster over the same Runner the platform
// uses. A host without the failover-clustering feature (or not joined to a
// cluster) reports clustered=false rather than an error.
type PowerShellCluster struct {
	r Runner
}

// NewPowerShellCluster creates a cluster capability bound to the runner.
func NewPowerShellCluster(r Runner) *PowerShellCluster {
	return &PowerShellCluster{r: r}
}

type clusterNodeWire struct {
	Name        string `json:"Name"`
	DrainStatus int    `json:"DrainStatus"`
}

// Node implements Cluster.
func (c *PowerShellCluster) Node(ctx context.Context) (string, bool, error) {
	script := `if (Get-Command Get-ClusterNode -ErrorAction SilentlyContinue) {` +
		` $n = Get-ClusterNode -Name $env:COMPUTERNAME -ErrorAction SilentlyContinue;` +
		` if ($n) { [pscustomobject]@{ Name=$n.Name; DrainStatus=[int]$n.DrainStatus } | ConvertTo-Json } }`
	out, err := c.r.Run(ctx, script)
	if err != nil {
		return "", false, util.NewPlatformError("Get-ClusterNode", "", err)
	}
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return "", false, nil
	}
	var w clusterNodeWire
	if err := json.Unmarshal(out, &w); err != nil {
		return "", false, util.NewPlatformError("Get-ClusterNode", "", err)
	}
	return w.Name, true, nil
}

// Drain implements Cluster.
func (c *PowerShellCluster) Drain(ctx context.Context, node string) error {
	script := `Suspend-ClusterNode -Name ` + psq(node) + ` -Drain -Wait:$false | Out-Null`
	if _, err := c.r.Run(ctx, script); err != nil {
		return util.NewPlatformError("Suspend-ClusterNode", node, err)
	}
	return nil
}

// Resume implements Cluster.
func (c *PowerShellCluster) Resume(ctx context.Context, node string) error {
	script := `Resume-ClusterNode -Name ` + psq(node) + ` -Failback Immediate | Out-Null`
	if _, err := c.r.Run(ctx, script); err != nil {
		return util.NewPlatformError("Resume-ClusterNode", node, err)
	}
	return nil
}

// Status implements Cluster.
func (c *PowerShellCluster) Status(ctx context.Context, node string) (DrainStatus, error) {
	script := `[int](Get-ClusterNode -Name ` + psq(node) + `).DrainStatus`
	out, err := c.r.Run(ctx, script)
	if err != nil {
		return DrainNotInitiated, util.NewPlatformError("Get-ClusterNode", node, err)
	}
	text := strings.TrimSpace(string(out))
	code, err := strconv.Atoi(text)
	if err != nil {
		return DrainNotInitiated, util.NewPlatformError("Get-ClusterNode", node, fmt.Errorf("unexpected drain status %q", text))
	}
	return DrainStatus(code), nil
}
