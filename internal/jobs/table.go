package jobs

import "errors"

// DefaultCapacity is the number of job slots used when no capacity is
// configured.
const DefaultCapacity = 16

var (
	ErrTableFull    = errors.New("job table full")
	ErrInvalidJob   = errors.New("invalid job")
	ErrDuplicatePid = errors.New("pid already registered")
)

// Table is a fixed-capacity registry of live jobs. Slots are allocated once
// by NewTable; Add, Remove, SetState and the finds scan them in place and never
// allocate. A Table is not safe for concurrent use: it belongs to the
// goroutine that launches and waits for jobs.
type Table struct {
	slots   []Job
	nextJid int
	live    int
}

func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table{
		slots:   make([]Job, capacity),
		nextJid: 1,
	}
}

func (t *Table) Cap() int { return len(t.slots) }

func (t *Table) Len() int { return t.live }

// Add registers pid and returns the job id assigned to it. When every slot is
// taken it returns ErrTableFull and the process stays untracked.
func (t *Table) Add(pid, pgid int, state State, cmdline string) (int, error) {
	if pid <= 0 || state == Undefined {
		return 0, ErrInvalidJob
	}

	free := -1
	for i := range t.slots {
		if t.slots[i].Pid == pid {
			return 0, ErrDuplicatePid
		}
		if free < 0 && t.slots[i].Pid == 0 {
			free = i
		}
	}
	if free < 0 {
		return 0, ErrTableFull
	}

	jid := t.nextJid
	for t.jidInUse(jid) {
		jid = t.wrap(jid + 1)
	}

	t.slots[free] = Job{Pid: pid, Pgid: pgid, Jid: jid, State: state, Cmdline: cmdline}
	t.live++
	t.nextJid = t.wrap(jid + 1)

	return jid, nil
}

// Remove clears the slot holding pid and resets the id counter to one past the
// largest id still in use.
func (t *Table) Remove(pid int) bool {
	if pid <= 0 {
		return false
	}

	for i := range t.slots {
		if t.slots[i].Pid == pid {
			t.slots[i] = Job{}
			t.live--
			t.nextJid = t.wrap(t.maxJid() + 1)
			return true
		}
	}
	return false
}

func (t *Table) FindByPid(pid int) (Job, bool) {
	if pid <= 0 {
		return Job{}, false
	}
	for i := range t.slots {
		if t.slots[i].Pid == pid {
			return t.slots[i], true
		}
	}
	return Job{}, false
}

func (t *Table) FindByJid(jid int) (Job, bool) {
	if jid <= 0 {
		return Job{}, false
	}
	for i := range t.slots {
		if t.slots[i].Pid != 0 && t.slots[i].Jid == jid {
			return t.slots[i], true
		}
	}
	return Job{}, false
}

func (t *Table) SetState(pid int, state State) bool {
	if pid <= 0 || state == Undefined {
		return false
	}
	for i := range t.slots {
		if t.slots[i].Pid == pid {
			t.slots[i].State = state
			return true
		}
	}
	return false
}

// SetGroupState records state for every live job in process group pgid and
// returns how many jobs it changed.
func (t *Table) SetGroupState(pgid int, state State) int {
	if pgid <= 0 || state == Undefined {
		return 0
	}
	n := 0
	for i := range t.slots {
		if t.slots[i].Pid != 0 && t.slots[i].Pgid == pgid {
			t.slots[i].State = state
			n++
		}
	}
	return n
}

// List returns the live jobs in slot order.
func (t *Table) List() []Job {
	out := make([]Job, 0, t.live)
	for _, job := range t.slots {
		if job.Pid != 0 {
			out = append(out, job)
		}
	}
	return out
}

func (t *Table) jidInUse(jid int) bool {
	for i := range t.slots {
		if t.slots[i].Pid != 0 && t.slots[i].Jid == jid {
			return true
		}
	}
	return false
}

func (t *Table) maxJid() int {
	maxJid := 0
	for i := range t.slots {
		if t.slots[i].Pid != 0 && t.slots[i].Jid > maxJid {
			maxJid = t.slots[i].Jid
		}
	}
	return maxJid
}

func (t *Table) wrap(jid int) int {
	if jid > len(t.slots) || jid < 1 {
		return 1
	}
	return jid
}
