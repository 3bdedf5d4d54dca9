package collect

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/opshawk/opshawk/internal/ai/tools"
)

// DockerCollector reads container state from the local Docker daemon.
type DockerCollector struct {
	cli *client.Client
}

// NewDockerCollector connects to the daemon using the standard environment
// (DOCKER_HOST etc.) with API version negotiation.
func NewDockerCollector() (*DockerCollector, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &DockerCollector{cli: cli}, nil
}

// Close releases the client connection.
func (c *DockerCollector) Close() error {
	return c.cli.Close()
}

// ListContainers returns all containers, running or not.
func (c *DockerCollector) ListContainers(ctx context.Context) ([]tools.ContainerInfo, error) {
	summaries, err := c.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("container list: %w", err)
	}

	out := make([]tools.ContainerInfo, 0, len(summaries))
	for _, s := range summaries {
		info := tools.ContainerInfo{
			ID:      shortID(s.ID),
			Name:    primaryName(s.Names),
			Image:   s.Image,
			State:   s.State,
			Status:  s.Status,
			Created: time.Unix(s.Created, 0).UTC(),
		}
		for _, p := range s.Ports {
			info.Ports = append(info.Ports, formatPort(p))
		}
		sort.Strings(info.Ports)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ContainerLogs returns the last `lines` log lines of a container.
func (c *DockerCollector) ContainerLogs(ctx context.Context, nameOrID string, lines int) (string, error) {
	rc, err := c.cli.ContainerLogs(ctx, nameOrID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(lines),
		Timestamps: true,
	})
	if err != nil {
		return "", fmt.Errorf("container logs for %s: %w", nameOrID, err)
	}
	defer rc.Close()

	// The daemon multiplexes stdout/stderr into one stream.
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		return "", fmt.Errorf("demultiplex logs for %s: %w", nameOrID, err)
	}
	if stderr.Len() == 0 {
		return stdout.String(), nil
	}
	return stdout.String() + stderr.String(), nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// primaryName strips the daemon's leading slash from the first name.
func primaryName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}

func formatPort(p container.Port) string {
	if p.PublicPort == 0 {
		return fmt.Sprintf("%d/%s", p.PrivatePort, p.Type)
	}
	host := p.IP
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d->%d/%s", host, p.PublicPort, p.PrivatePort, p.Type)
}
