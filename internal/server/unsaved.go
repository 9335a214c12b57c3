package server

import (
	"sync"

	"github.com/p-n-ai/educonnect/internal/course"
)

const maxUnsavedCourses = 64

// unsavedCourses holds generated courses the store rejected, so they can
// still be viewed and exported from this process. The oldest entry is
// evicted once the limit is reached.
type unsavedCourses struct {
	mu    sync.Mutex
	limit int
	order []string
	byID  map[string]*course.Course
}

func newUnsavedCourses(limit int) *unsavedCourses {
	return &unsavedCourses{limit: limit, byID: make(map[string]*course.Course)}
}

func (u *unsavedCourses) Add(c *course.Course) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byID[c.ID]; !ok {
		u.order = append(u.order, c.ID)
	}
	u.byID[c.ID] = c
	for len(u.order) > u.limit {
		delete(u.byID, u.order[0])
		u.order = u.order[1:]
	}
}

func (u *unsavedCourses) Get(id string) (*course.Course, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	c, ok := u.byID[id]
	return c, ok
}
