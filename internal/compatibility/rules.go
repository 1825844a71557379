package compatibility

import (
	"fmt"
	"strings"
)

type rule func(s set) []string

// rules run in this order; every rule runs regardless of earlier results.
var rules = []rule{
	socketRule,
	memoryTypeRule,
	powerBudgetRule,
	formFactorRule,
	storageCapacityRule,
}

func normalizeSocket(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// socketRule only compares when both sides declare a socket.
func socketRule(s set) []string {
	if s.cpu == nil || s.motherboard == nil {
		return nil
	}
	cpuSocket := normalizeSocket(s.cpu.SocketName())
	boardSocket := normalizeSocket(s.motherboard.SocketName())
	if cpuSocket == "" || boardSocket == "" || cpuSocket == boardSocket {
		return nil
	}
	return []string{fmt.Sprintf("CPU (%s) socket (%s) is incompatible with Motherboard (%s) socket (%s).",
		s.cpu.Model(), cpuSocket, s.motherboard.Model(), boardSocket)}
}

func memoryTypeRule(s set) []string {
	if s.ram == nil || s.motherboard == nil {
		return nil
	}
	if s.ram.MemoryType() == s.motherboard.MemoryType() {
		return nil
	}
	return []string{fmt.Sprintf("RAM (%s) type (%s) is not supported by Motherboard (%s) which supports %s.",
		s.ram.Model(), s.ram.MemoryType(), s.motherboard.Model(), s.motherboard.MemoryType())}
}

func powerBudgetRule(s set) []string {
	if s.psu == nil {
		return nil
	}
	var required float64
	if s.cpu != nil {
		required += s.cpu.PowerDraw()
	}
	if s.gpu != nil {
		required += s.gpu.PowerDraw()
	}
	wattage := s.psu.Wattage()
	if wattage >= required {
		return nil
	}
	return []string{fmt.Sprintf("PSU (%s) wattage (%gW) is insufficient. Required: %gW.",
		s.psu.Model(), wattage, required)}
}

func formFactorRule(s set) []string {
	if s.pcCase == nil || s.motherboard == nil {
		return nil
	}
	if s.pcCase.FormFactor() == s.motherboard.FormFactor() {
		return nil
	}
	return []string{fmt.Sprintf("Case (%s) form factor (%s) does not match Motherboard (%s) form factor (%s).",
		s.pcCase.Model(), s.pcCase.FormFactor(), s.motherboard.Model(), s.motherboard.FormFactor())}
}

func storageCapacityRule(s set) []string {
	if s.motherboard == nil || len(s.storage) == 0 {
		return nil
	}
	var sata, nvme int
	for _, drive := range s.storage {
		switch {
		case strings.EqualFold(drive.ConnectionType(), "SATA"):
			sata++
		case strings.EqualFold(drive.ConnectionType(), "NVMe"):
			nvme++
		}
	}

	var issues []string
	if ports := s.motherboard.SATAPorts(); sata > ports {
		issues = append(issues, fmt.Sprintf("Not enough SATA ports on Motherboard (%s). Available: %d, Required: %d.",
			s.motherboard.Model(), ports, sata))
	}
	if slots := s.motherboard.NVMeSlots(); nvme > slots {
		issues = append(issues, fmt.Sprintf("Not enough NVMe slots on Motherboard (%s). Available: %d, Required: %d.",
			s.motherboard.Model(), slots, nvme))
	}
	return issues
}
