package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/manager.txt
	managerRaw string

	//go:embed template/email.txt
	emailRaw string

	//go:embed template/calendar.txt
	calendarRaw string

	//go:embed template/budget.txt
	budgetRaw string

	//go:embed template/memory.txt
	memoryRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router   string
	Manager  string
	Email    string
	Calendar string
	Budget   string
	Memory   string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:   strings.TrimSpace(routerRaw),
		Manager:  strings.TrimSpace(managerRaw),
		Email:    strings.TrimSpace(emailRaw),
		Calendar: strings.TrimSpace(calendarRaw),
		Budget:   strings.TrimSpace(budgetRaw),
		Memory:   strings.TrimSpace(memoryRaw),
	}
}
