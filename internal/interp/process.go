package interp

import "github.com/rochus-keller/st80vm/internal/memory"

// Process instance-variable layout (Blue Book): suspendedContext,
// priority, myList. The scheduler object (reached through ProcessorOOP)
// holds a pointer-indexed-by-priority array of run-queue linked lists.
const (
	processSuspendedContext = 0
	processPriority         = 1

	// semaphoreExcessSignals is a Semaphore's own instance-variable index
	// for the "signals banked while nobody was waiting" counter (Blue
	// Book LinkedList leaves slots 0/1 for its link pointers; Semaphore's
	// own addition follows at slot 2).
	semaphoreExcessSignals = 2
)

// scheduler tracks runnable processes and pending timer wake-ups. It
// mirrors StInterpreter.cpp's checkProcessSwitch in spirit: a cheap
// countdown gates how often the interpreter looks for switch-worthy
// events, rather than checking every bytecode (SPEC_FULL.md §C.2).
//
// Process>>suspend/resume and Semaphore>>wait need an actual ready list
// to pick a successor from; the base image's own ProcessorScheduler
// object models this with linked lists the primitives would otherwise
// have to walk field-by-field, so this core keeps the ready set and each
// semaphore's wait list as plain Go slices instead (DESIGN.md, "Open
// questions resolved", scheduler bookkeeping). Fairness beyond FIFO-within-priority is not
// attempted.
type scheduler struct {
	om *memory.ObjectMemory

	pendingSemaphoreSignals []memory.OOP
	wakeAtTick              uint32
	wakeSemaphore           memory.OOP
	haveWake                bool

	ready         map[int32][]memory.OOP   // priority -> runnable process OOPs
	semaphoreWait map[memory.OOP][]memory.OOP
	active        memory.OOP // the currently running Process, nil until first switch
}

func newScheduler(om *memory.ObjectMemory) *scheduler {
	return &scheduler{
		om:            om,
		ready:         make(map[int32][]memory.OOP),
		semaphoreWait: make(map[memory.OOP][]memory.OOP),
	}
}

// SignalSemaphore records that semaphore sem received a signal; resolved
// at the next process-switch poll by waking its longest-waiting waiter.
func (s *scheduler) SignalSemaphore(sem memory.OOP) {
	s.pendingSemaphoreSignals = append(s.pendingSemaphoreSignals, sem)
}

// enqueueReady makes process runnable at priority, appended behind any
// process already waiting at that priority.
func (s *scheduler) enqueueReady(process memory.OOP, priority int32) {
	s.ready[priority] = append(s.ready[priority], process)
}

// dequeueHighestReady removes and returns the longest-waiting process at
// the highest non-empty priority, if any.
func (s *scheduler) dequeueHighestReady() (memory.OOP, bool) {
	best := int32(-1)
	for p, q := range s.ready {
		if len(q) > 0 && p > best {
			best = p
		}
	}
	if best == -1 {
		return 0, false
	}
	proc := s.ready[best][0]
	s.ready[best] = s.ready[best][1:]
	return proc, true
}

// enqueueWaiter adds process to sem's wait list (Semaphore>>wait, spec.md
// §4.3 primitive 87).
func (s *scheduler) enqueueWaiter(sem, process memory.OOP) {
	s.semaphoreWait[sem] = append(s.semaphoreWait[sem], process)
}

// dequeueWaiter removes and returns sem's longest-waiting process, if any.
func (s *scheduler) dequeueWaiter(sem memory.OOP) (memory.OOP, bool) {
	q := s.semaphoreWait[sem]
	if len(q) == 0 {
		return 0, false
	}
	proc := q[0]
	s.semaphoreWait[sem] = q[1:]
	return proc, true
}

// SignalAtTick arms the timer wake-up primitiveSignalAtTick sets (spec.md
// §9 "Timer integration").
func (s *scheduler) SignalAtTick(sem memory.OOP, tick uint32) {
	s.wakeSemaphore = sem
	s.wakeAtTick = tick
	s.haveWake = true
}

// checkProcessSwitch polls pending signals and timer expiry and, if a
// higher-priority process than the one currently running became
// runnable, switches the active context to it (spec.md §5 "Suspension
// points").
func (in *Interpreter) checkProcessSwitch() error {
	sch := in.scheduler
	if len(sch.pendingSemaphoreSignals) == 0 && !sch.haveWake {
		return nil
	}

	for _, sem := range sch.pendingSemaphoreSignals {
		in.resumeHighestWaiter(sem)
	}
	sch.pendingSemaphoreSignals = sch.pendingSemaphoreSignals[:0]

	if sch.haveWake && in.currentTickMS() >= sch.wakeAtTick {
		sch.haveWake = false
		in.resumeHighestWaiter(sch.wakeSemaphore)
	}
	return nil
}

// currentTickMS reads the host clock through the display adapter, or
// returns 0 when no adapter is wired (headless tests).
func (in *Interpreter) currentTickMS() uint32 {
	if in.display == nil {
		return 0
	}
	return in.display.TicksMS()
}

// resumeHighestWaiter wakes the longest-waiting process blocked on sem,
// if any; otherwise the signal is banked as an excess signal on the
// Semaphore itself, exactly as an uncontended `wait` will later consume
// it without blocking (spec.md §4.3 primitives 86/87).
func (in *Interpreter) resumeHighestWaiter(sem memory.OOP) {
	if proc, ok := in.scheduler.dequeueWaiter(sem); ok {
		in.makeRunnable(proc)
		return
	}
	excess, err := in.om.FetchPointer(sem, semaphoreExcessSignals)
	if err != nil {
		return
	}
	n := int32(0)
	if excess.IsSmallInteger() {
		n = memory.ToInt(excess)
	}
	if v, ok := memory.FromInt(n + 1); ok {
		in.om.StorePointer(sem, semaphoreExcessSignals, v)
	}
}

// makeRunnable enqueues process at its declared priority and preempts the
// active process immediately if process now outranks it (spec.md §4.3
// "process priority").
func (in *Interpreter) makeRunnable(process memory.OOP) {
	priority := in.processPriority(process)
	if in.scheduler.active == memory.NilOOP || in.scheduler.active == 0 {
		in.switchToProcess(process)
		return
	}
	activePriority := in.processPriority(in.scheduler.active)
	if priority > activePriority {
		preempted := in.scheduler.active
		in.suspendActiveInto(preempted)
		in.scheduler.enqueueReady(preempted, activePriority)
		in.switchToProcess(process)
		return
	}
	in.scheduler.enqueueReady(process, priority)
}

func (in *Interpreter) processPriority(process memory.OOP) int32 {
	v, err := in.om.FetchPointer(process, processPriority)
	if err != nil || !v.IsSmallInteger() {
		return 0
	}
	return memory.ToInt(v)
}

// suspendActiveInto records the currently active context as process's
// suspended continuation, so a later resume picks up exactly where it
// left off.
func (in *Interpreter) suspendActiveInto(process memory.OOP) {
	in.om.StorePointer(process, processSuspendedContext, in.om.Register(memory.RegActiveContext))
}

// switchToProcess installs target's suspended context as the active one
// and records target as the scheduler's active process. The caller is
// responsible for first parking whatever process was previously active
// (suspendActiveInto plus, if it should stay runnable, enqueueReady).
func (in *Interpreter) switchToProcess(target memory.OOP) {
	suspended, err := in.om.FetchPointer(target, processSuspendedContext)
	if err != nil || suspended == memory.NilOOP {
		return
	}
	in.scheduler.active = target
	in.om.SetRegister(memory.RegActiveContext, suspended)
	home := Wrap(in.om, suspended)
	if home.IsBlock() {
		home = home.Home()
	}
	in.om.SetRegister(memory.RegHomeContext, home.OOP)
	m, _ := in.om.FetchPointer(home.OOP, fieldMethodOrArgs)
	in.om.SetRegister(memory.RegMethod, m)
	in.om.SetRegister(memory.RegReceiver, home.Receiver())
}
