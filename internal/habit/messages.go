package habit

import (
	"math/rand/v2"
	"sync"

	"github.com/julianstephens/keeprun/internal/constants"
)

var dayMessages = [constants.MotivationDays]string{
	"Day 1. Every streak starts with a single check.",
	"Day 2. You came back, and that is the hard part.",
	"Day 3. Three days in. The habit is noticing you.",
	"Day 4. Small steps are still steps forward.",
	"Day 5. Five days strong. Keep the rhythm.",
	"Day 6. Almost a full week of showing up.",
	"Day 7. One week done. Halfway to fourteen.",
	"Day 8. The second week begins. Stay steady.",
	"Day 9. Consistency beats intensity.",
	"Day 10. Double digits. Look how far you came.",
	"Day 11. The finish line is getting closer.",
	"Day 12. Only a few more days to go.",
	"Day 13. One more sunrise after this one.",
	"Day 14. You kept running. The habit is yours.",
}

var resetMessages = []string{
	"Missing a couple of days is not failing. Start again today.",
	"Every runner stumbles. What matters is lacing up again.",
	"The streak reset, but what you learned did not.",
	"New start, same you. Let's go one day at a time.",
	"Two days off happens. Day one is waiting for you.",
	"Progress is not a straight line. Pick it back up.",
}

// MessageForDay returns the encouragement for a 1-based day in the window.
// Days outside the table have no message.
func MessageForDay(day int) (string, bool) {
	if day < 1 || day > len(dayMessages) {
		return "", false
	}
	return dayMessages[day-1], true
}

// ResetMessenger picks reset messages from a caller-supplied random source.
type ResetMessenger struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewResetMessenger(src rand.Source) *ResetMessenger {
	return &ResetMessenger{rng: rand.New(src)}
}

func (m *ResetMessenger) Pick() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return resetMessages[m.rng.IntN(len(resetMessages))]
}

// RandomResetMessage picks a reset message using the global source.
func RandomResetMessage() string {
	return resetMessages[rand.IntN(len(resetMessages))]
}
