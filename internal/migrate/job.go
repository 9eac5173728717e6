package migrate

import (
	"github.com/google/uuid"

	"github.com/yankadevlab/ydl/internal/env"
	"github.com/yankadevlab/ydl/internal/identity"
)

// Job is one migration run. The engine owns it until Run returns.
type Job struct {
	ID          string
	Source      env.Environment
	Destination env.Environment
	Artifact    env.ArtifactRef
	State       State
	History     []State
	Snapshot    *identity.Snapshot
	Warnings    []BestEffortFailure
	Err         error

	// placements are the environments holding a copy of the artifact.
	placements []env.Environment
	// staging is the local directory a remote-to-remote transfer goes
	// through.
	staging string
}

func newJob(src, dst env.Environment, artifact string) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Source:      src,
		Destination: dst,
		Artifact:    env.ArtifactRef(artifact),
		State:       Initialized,
		History:     []State{Initialized},
	}
}

func (j *Job) place(e env.Environment) {
	for _, p := range j.placements {
		if p == e {
			return
		}
	}
	j.placements = append(j.placements, e)
}

func (j *Job) unplace(e env.Environment) {
	for i, p := range j.placements {
		if p == e {
			j.placements = append(j.placements[:i], j.placements[i+1:]...)
			return
		}
	}
}

// Placements returns the environments whose file space holds the
// artifact.
func (j *Job) Placements() []env.Environment {
	return append([]env.Environment(nil), j.placements...)
}

// Progress is a snapshot of a job pushed to a Reporter on each transition.
type Progress struct {
	JobID string
	State State
	Step  int
	Total int
	Err   error
}

// Fraction is the completed share of the pipeline, 0 to 1.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Step) / float64(p.Total)
}

// Reporter receives progress updates.
type Reporter interface {
	Report(Progress)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }

// tracker counts transitions of one job.
type tracker struct {
	job      *Job
	step     int
	reporter Reporter
}

func (t *tracker) advance(s State) {
	t.job.State = s
	t.job.History = append(t.job.History, s)
	if s != Aborted {
		t.step++
	}
	if t.reporter != nil {
		t.reporter.Report(Progress{
			JobID: t.job.ID,
			State: s,
			Step:  t.step,
			Total: Steps,
			Err:   t.job.Err,
		})
	}
}
