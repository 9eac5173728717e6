package docker

import "strings"

// Reserved container name infixes. Compose names containers
// <project>-<service>-<n>, so the service name decides the role.
const (
	ApplicationInfix = "-wordpress-"
	DatabaseInfix    = "-db-"
)

// StateRunning is the docker state of a running container.
const StateRunning = "running"

const composeProjectLabel = "com.docker.compose.project"

// Role is the part a container plays in a stack.
type Role int

const (
	RoleNone Role = iota
	RoleApplication
	RoleDatabase
)

func (r Role) String() string {
	switch r {
	case RoleApplication:
		return "application"
	case RoleDatabase:
		return "database"
	default:
		return "-"
	}
}

// Classify returns the role implied by a container name.
// The application infix wins when a name carries both.
func Classify(name string) Role {
	switch {
	case strings.Contains(name, ApplicationInfix):
		return RoleApplication
	case strings.Contains(name, DatabaseInfix):
		return RoleDatabase
	default:
		return RoleNone
	}
}

// Network is one network attachment.
type Network struct {
	Name      string
	IPAddress string
}

// Container is a snapshot of one container.
type Container struct {
	ID       string
	Name     string
	Image    string
	State    string
	Labels   map[string]string
	Networks []Network
}

// Running reports whether the container was running at snapshot time.
func (c Container) Running() bool { return c.State == StateRunning }

// Role classifies the container by name.
func (c Container) Role() Role { return Classify(c.Name) }

// Project returns the compose project the container belongs to, if any.
func (c Container) Project() string { return c.Labels[composeProjectLabel] }

// Containers is a snapshot list.
type Containers []Container

// ForProject keeps containers labelled with the given compose project.
func (cs Containers) ForProject(project string) Containers {
	var out Containers
	for _, c := range cs {
		if c.Project() == project {
			out = append(out, c)
		}
	}
	return out
}

// Application returns the first running application-role container.
func (cs Containers) Application() (Container, bool) {
	return cs.first(RoleApplication)
}

// Database returns the first running database-role container.
func (cs Containers) Database() (Container, bool) {
	return cs.first(RoleDatabase)
}

func (cs Containers) first(role Role) (Container, bool) {
	for _, c := range cs {
		if c.Running() && c.Role() == role {
			return c, true
		}
	}
	return Container{}, false
}

// Names returns container names in order.
func (cs Containers) Names() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}
