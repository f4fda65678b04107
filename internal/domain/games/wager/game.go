// Package wager implements the chance games: a stake is debited up front,
// a roll over the game's symbol space decides the multiplier, and the
// payout lands after a short scheduled delay.
package wager

// Game is a closed enumeration of the chance games.
type Game int

const (
	GameDice Game = iota
	GameBasketball
	GameSlots
)

// String returns the game label used in logs and metrics.
func (g Game) String() string {
	switch g {
	case GameDice:
		return "dice"
	case GameBasketball:
		return "basketball"
	case GameSlots:
		return "slots"
	default:
		return "unknown"
	}
}

// Symbols returns the size of the game's discrete roll space.
func (g Game) Symbols() int {
	switch g {
	case GameDice:
		return 6
	case GameBasketball:
		return 5
	case GameSlots:
		return 64
	default:
		return 0
	}
}

// MinLevel returns the progression level required to play.
func (g Game) MinLevel() int {
	switch g {
	case GameBasketball:
		return 4
	default:
		return 3
	}
}

// Valid reports whether g is one of the known games.
func (g Game) Valid() bool {
	return g >= GameDice && g <= GameSlots
}

// Multiplier maps a roll to its payout multiplier, zero for a loss.
// Dice: 4-6 pay double. Basketball: 4 pays double, 5 triple. Slots: 64 is
// the jackpot at ten times, 1/22/43 are three-in-a-row at triple.
func (g Game) Multiplier(roll int) int64 {
	switch g {
	case GameDice:
		if roll >= 4 {
			return 2
		}
	case GameBasketball:
		switch roll {
		case 4:
			return 2
		case 5:
			return 3
		}
	case GameSlots:
		switch roll {
		case 64:
			return 10
		case 1, 22, 43:
			return 3
		}
	}
	return 0
}
