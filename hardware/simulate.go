package hardware

import (
	"sync"

	"github.com/gammazero/deque"
)

// IdleByte is shifted in when the remote side drives nothing.
const IdleByte byte = 0xFF

// Simulated is a software model of the serial peripheral and its pins. The
// remote side of the bus is modelled by a queue of inbound bytes and an
// optional responder.
//
// The completion flag follows the AVR rule: a data write on an enabled
// peripheral completes the transaction and sets StatusComplete, and the flag
// is cleared by the first data access after a status read that saw it set.
// A data write while the peripheral is disabled never completes.
type Simulated struct {
	mu         sync.Mutex
	control    byte
	status     byte
	data       byte
	flagSeen   bool
	inbound    deque.Deque[byte]
	respond    func(out byte) byte
	replyOn    byte
	reply      []byte
	manual     bool
	pending    bool
	pendingOut byte
	transcript []Transaction
	pins       map[PinID]Direction
	observer   Observer
}

// NewSimulated returns a simulated peripheral in reset state.
func NewSimulated() *Simulated {
	return &Simulated{
		pins: make(map[PinID]Direction),
	}
}

// Feed queues bytes the remote side presents in the following transactions.
func (s *Simulated) Feed(b ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range b {
		s.inbound.PushBack(v)
	}
}

// Pending returns the number of queued inbound bytes not yet shifted in.
func (s *Simulated) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inbound.Len()
}

// SetResponder installs a function computing the inbound byte from the
// outbound one. It is consulted only when the inbound queue is empty.
func (s *Simulated) SetResponder(f func(out byte) byte) {
	s.mu.Lock()
	s.respond = f
	s.mu.Unlock()
}

// SetReply makes the remote side queue reply every time it receives the
// byte on, modelling a device that answers a terminated frame. A nil reply
// turns this off.
func (s *Simulated) SetReply(on byte, reply []byte) {
	s.mu.Lock()
	s.replyOn = on
	s.reply = append([]byte(nil), reply...)
	s.mu.Unlock()
}

// SetManual switches to manual completion: every transaction stays pending
// until Complete is called.
func (s *Simulated) SetManual(manual bool) {
	s.mu.Lock()
	s.manual = manual
	s.mu.Unlock()
}

// Complete finishes the pending transaction. It reports false if none is
// pending.
func (s *Simulated) Complete() bool {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = false
	t := s.finish(s.pendingOut)
	obs := s.observer
	s.mu.Unlock()
	if obs != nil {
		obs(t)
	}
	return true
}

// InFlight reports whether a transaction waits for Complete.
func (s *Simulated) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// OnTransaction implements Observable.
func (s *Simulated) OnTransaction(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// Transcript returns a copy of all completed transactions.
func (s *Simulated) Transcript() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]Transaction, len(s.transcript))
	copy(ret, s.transcript)
	return ret
}

// Outbound returns the bytes shifted out so far.
func (s *Simulated) Outbound() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]byte, len(s.transcript))
	for i, t := range s.transcript {
		ret[i] = t.Out
	}
	return ret
}

// PinDirection returns the configured direction of a pin and whether it was
// configured at all.
func (s *Simulated) PinDirection(id PinID) (Direction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, ok := s.pins[id]
	return dir, ok
}

// SetupPinDirection implements PinConfigurator.
func (s *Simulated) SetupPinDirection(port Port, pin Pin, dir Direction) {
	s.mu.Lock()
	s.pins[PinID{port, pin}] = dir
	s.mu.Unlock()
}

func (s *Simulated) Control() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control
}

func (s *Simulated) SetControl(v byte) {
	s.mu.Lock()
	s.control = v
	s.mu.Unlock()
}

func (s *Simulated) Status() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status&StatusComplete != 0 {
		s.flagSeen = true
	}
	return s.status
}

func (s *Simulated) Data() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearFlag()
	return s.data
}

func (s *Simulated) SetData(v byte) {
	s.mu.Lock()
	s.clearFlag()
	if s.control&ControlEnable == 0 || s.pending {
		// disabled or busy: the write is lost
		s.mu.Unlock()
		return
	}
	if s.manual {
		s.pending = true
		s.pendingOut = v
		s.mu.Unlock()
		return
	}
	t := s.finish(v)
	obs := s.observer
	s.mu.Unlock()
	if obs != nil {
		obs(t)
	}
}

// finish shifts out v, latches the inbound byte and raises the flag.
// Callers hold s.mu.
func (s *Simulated) finish(v byte) Transaction {
	in := IdleByte
	if s.inbound.Len() > 0 {
		in = s.inbound.PopFront()
	} else if s.respond != nil {
		in = s.respond(v)
	}
	if len(s.reply) > 0 && v == s.replyOn {
		for _, b := range s.reply {
			s.inbound.PushBack(b)
		}
	}
	s.data = in
	s.status |= StatusComplete
	s.flagSeen = false
	t := Transaction{Out: v, In: in}
	s.transcript = append(s.transcript, t)
	return t
}

func (s *Simulated) clearFlag() {
	if s.flagSeen {
		s.status &^= StatusComplete
		s.flagSeen = false
	}
}
