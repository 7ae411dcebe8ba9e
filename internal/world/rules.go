package world

import "fmt"

// Rules holds the match-wide game constants.
type Rules struct {
	MinMapSize int
	MaxMapSize int

	InitialReserve   int // granted to each team at construction
	PassiveIncome    int // credited to each team every round
	DepositInterval  int // rounds between deposit growth
	DepositGrowth    int // added to every cell already holding resource
	CooldownLimit    int // an agent is ready while cooldown < CooldownLimit
	CooldownsPerTurn int // subtracted at the start of each of the agent's turns

	CollisionThreshold float64 // |h1-h2| at or below this destroys both
	NetWorthEpsilon    float64
	InitialHealth      float64 // for descriptor agents with no explicit health

	IndicatorMaxLength int
	DefaultRoundLimit  int
	DefaultSeed        int64
}

func DefaultRules() Rules {
	return Rules{
		MinMapSize:         20,
		MaxMapSize:         60,
		InitialReserve:     10,
		PassiveIncome:      1,
		DepositInterval:    20,
		DepositGrowth:      5,
		CooldownLimit:      10,
		CooldownsPerTurn:   10,
		CollisionThreshold: 1,
		NetWorthEpsilon:    1e-6,
		InitialHealth:      1,
		IndicatorMaxLength: 64,
		DefaultRoundLimit:  2000,
		DefaultSeed:        6370,
	}
}

// Validate rejects rule sets that would break the round loop.
func (r Rules) Validate() error {
	switch {
	case r.MinMapSize <= 0 || r.MaxMapSize < r.MinMapSize:
		return fmt.Errorf("map size bounds [%d,%d] invalid", r.MinMapSize, r.MaxMapSize)
	case r.InitialReserve < 0 || r.PassiveIncome < 0 || r.DepositGrowth < 0:
		return fmt.Errorf("resource constants must be non-negative")
	case r.DepositInterval <= 0:
		return fmt.Errorf("deposit interval must be positive, got %d", r.DepositInterval)
	case r.CooldownLimit <= 0 || r.CooldownsPerTurn <= 0:
		return fmt.Errorf("cooldown constants must be positive")
	case r.CollisionThreshold < 0 || r.NetWorthEpsilon < 0:
		return fmt.Errorf("thresholds must be non-negative")
	case r.InitialHealth <= 0:
		return fmt.Errorf("initial health must be positive")
	case r.IndicatorMaxLength <= 0:
		return fmt.Errorf("indicator max length must be positive")
	case r.DefaultRoundLimit <= 0:
		return fmt.Errorf("default round limit must be positive")
	}
	return nil
}
