package provision

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kjfrm085feather/vps-bot/pkg/models"
)

// ContainerName is the container name used for a resource.
func ContainerName(resourceID string) string {
	return "vps-" + resourceID
}

// MetadataBackend provisions nothing and only names the resource. Used when
// no container image is configured.
type MetadataBackend struct{}

// Provision returns the container name the resource would get.
func (MetadataBackend) Provision(_ context.Context, req models.ProvisionRequest) (string, error) {
	return ContainerName(req.ResourceID), nil
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// DockerBackend starts one detached container per resource through the
// docker CLI.
type DockerBackend struct {
	Image  string
	Binary string
	Run    Runner
}

// NewDockerBackend returns a backend using the docker binary on PATH.
func NewDockerBackend(image string) *DockerBackend {
	return &DockerBackend{Image: image, Binary: "docker", Run: execRunner}
}

// Args returns the docker arguments used for req.
func (d *DockerBackend) Args(req models.ProvisionRequest) []string {
	return []string{
		"run", "-d",
		"--name", ContainerName(req.ResourceID),
		"--hostname", ContainerName(req.ResourceID),
		"--cpus", fmt.Sprint(req.CPU),
		"--memory", fmt.Sprintf("%dg", req.RAM),
		"--label", "vpsbot.owner=" + req.Owner,
		"--label", "vpsbot.storage=" + fmt.Sprint(req.Storage),
		"--restart", "unless-stopped",
		d.Image,
		"sleep", "infinity",
	}
}

// Provision runs the container and returns its name.
func (d *DockerBackend) Provision(ctx context.Context, req models.ProvisionRequest) (string, error) {
	run := d.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, d.Binary, d.Args(req)...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", fmt.Errorf("docker run: %w", err)
		}
		return "", fmt.Errorf("docker run: %w: %s", err, msg)
	}
	return ContainerName(req.ResourceID), nil
}
