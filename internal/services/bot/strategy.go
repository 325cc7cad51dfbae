package bot

import (
	"github.com/mcoot/werewolf/internal/client"
	"github.com/mcoot/werewolf/internal/dependencies/random"
)

// Strategy names
const (
	StrategyRandom = "random"
	StrategyFirst  = "first"
)

// Strategy defines how a bot chooses who to kill and who to vote out
type Strategy = client.Chooser

// DefaultStrategies returns every built-in strategy by name
func DefaultStrategies(rnd random.Random) map[string]Strategy {
	return map[string]Strategy{
		StrategyRandom: NewRandomStrategy(rnd),
		StrategyFirst:  client.FirstChoice{},
	}
}
