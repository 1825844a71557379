// Package compatibility checks a candidate part list against a fixed set of
// pairwise hardware rules. It never fails on malformed data: unreadable
// numbers count as zero and violations are returned as messages.
package compatibility

// Type labels the rules look for. Part.Kind must return one of these for a
// part to take part in a rule.
const (
	KindCPU         = "CPU"
	KindMotherboard = "Motherboard"
	KindRAM         = "RAM"
	KindGPU         = "GPU"
	KindPSU         = "PSU"
	KindCase        = "Case"
	KindStorage     = "Storage"
)

// Part exposes the attributes the rules read.
type Part interface {
	Kind() string
	Model() string
	SocketName() string
	MemoryType() string
	Wattage() float64
	PowerDraw() float64
	FormFactor() string
	ConnectionType() string
	SATAPorts() int
	NVMeSlots() int
}

// set indexes a part list by kind. The first part of a kind wins for the
// single-slot kinds; Storage keeps every entry.
type set struct {
	cpu, motherboard, ram, gpu, psu, pcCase Part
	storage                                 []Part
}

func index[P Part](parts []P) set {
	var s set
	for _, p := range parts {
		switch p.Kind() {
		case KindCPU:
			if s.cpu == nil {
				s.cpu = p
			}
		case KindMotherboard:
			if s.motherboard == nil {
				s.motherboard = p
			}
		case KindRAM:
			if s.ram == nil {
				s.ram = p
			}
		case KindGPU:
			if s.gpu == nil {
				s.gpu = p
			}
		case KindPSU:
			if s.psu == nil {
				s.psu = p
			}
		case KindCase:
			if s.pcCase == nil {
				s.pcCase = p
			}
		case KindStorage:
			s.storage = append(s.storage, p)
		}
	}
	return s
}
