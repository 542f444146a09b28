package clipboard

import "sync"

// Reading is one scripted result for Memory.Read.
type Reading struct {
	Text string
	Err  error
}

// Memory is an in-process clipboard. Scripted readings are returned in order, one per Read; once they run out,
// Read returns whatever was last read or written.
type Memory struct {
	mu      sync.Mutex
	script  []Reading
	current string
	reads   int
}

func NewMemory(readings ...Reading) *Memory {
	return &Memory{script: readings}
}

// NewMemoryText scripts a sequence of successful readings.
func NewMemoryText(texts ...string) *Memory {
	readings := make([]Reading, 0, len(texts))
	for _, t := range texts {
		readings = append(readings, Reading{Text: t})
	}
	return NewMemory(readings...)
}

func (*Memory) Name() string {
	return "memory"
}

func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if len(m.script) == 0 {
		return m.current, nil
	}
	r := m.script[0]
	m.script = m.script[1:]
	if r.Err != nil {
		return "", r.Err
	}
	m.current = r.Text
	return r.Text, nil
}

func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = text
	return nil
}

// Reads is how many times Read has been called.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Remaining is how many scripted readings have not been consumed yet.
func (m *Memory) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}
