// Population spawning — splits the student body into engagement cohorts,
// names each student, and precomputes login days.
package agents

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// CohortRatios is the share of students per engagement level.
// Ratios need not sum to 1; they are weights.
type CohortRatios struct {
	Low     float64 `json:"low" yaml:"low"`
	Average float64 `json:"average" yaml:"average"`
	High    float64 `json:"high" yaml:"high"`
}

// DefaultCohorts is 6% low, 88% average, 6% high.
func DefaultCohorts() CohortRatios {
	return CohortRatios{Low: 0.06, Average: 0.88, High: 0.06}
}

func (c CohortRatios) weights() []float64 {
	return []float64{c.Low, c.Average, c.High}
}

// Apportion splits total students across levels by the largest remainder
// method. The counts always sum to total. Ties go to the lower level.
func (c CohortRatios) Apportion(total int) map[Level]int {
	counts := make(map[Level]int, len(Levels))
	if total <= 0 {
		return counts
	}

	w := c.weights()
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		return counts
	}

	type share struct {
		idx int
		rem float64
	}
	shares := make([]share, len(w))
	assigned := 0
	for i, v := range w {
		exact := float64(total) * v / sum
		// Nudge so 5.9999999 from float rounding counts as 6.
		n := int(math.Floor(exact + 1e-9))
		counts[Levels[i]] = n
		assigned += n
		shares[i] = share{idx: i, rem: exact - float64(n)}
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].rem > shares[j].rem
	})
	for i := 0; assigned < total; i++ {
		counts[Levels[shares[i%len(shares)].idx]]++
		assigned++
	}
	return counts
}

// Spawner creates students for a run.
type Spawner struct {
	rng    *rand.Rand
	nextID ActorID
	policy LoginPolicy
}

// NewSpawner creates a student spawner drawing from rng.
func NewSpawner(rng *rand.Rand, policy LoginPolicy) *Spawner {
	return &Spawner{
		rng:    rng,
		nextID: 1,
		policy: policy,
	}
}

// SpawnPopulation creates total students split by ratios, low cohort first,
// with login days chosen across the run's date range.
func (s *Spawner) SpawnPopulation(total int, ratios CohortRatios, start time.Time, days int) []*Actor {
	counts := ratios.Apportion(total)
	actors := make([]*Actor, 0, total)

	for _, level := range Levels {
		for i := 0; i < counts[level]; i++ {
			actors = append(actors, s.SpawnOne(level, start, days))
		}
	}
	return actors
}

// SpawnOne creates a single student at the given level.
func (s *Spawner) SpawnOne(level Level, start time.Time, days int) *Actor {
	id := s.nextID
	s.nextID++

	a := NewActor(id, s.generateName(), level)
	a.SelectLoginDays(start, days, s.policy, s.rng)
	return a
}

func (s *Spawner) generateName() string {
	var firsts []string
	if s.rng.Float32() < 0.5 {
		firsts = maleNames
	} else {
		firsts = femaleNames
	}
	first := firsts[s.rng.Intn(len(firsts))]
	last := lastNames[s.rng.Intn(len(lastNames))]
	return first + " " + last
}

// Name pools for procedural generation (Brazilian Portuguese).
var maleNames = []string{
	"João", "Pedro", "Lucas", "Gabriel", "Mateus", "Rafael", "Gustavo",
	"Felipe", "Enzo", "Davi", "Arthur", "Heitor", "Bernardo", "Miguel",
	"Thiago", "Bruno", "Caio", "Vitor", "Leonardo", "Samuel", "Otávio",
	"Vinícius", "Eduardo", "Henrique", "Murilo", "Igor", "Diego", "Renan",
}

var femaleNames = []string{
	"Ana", "Maria", "Beatriz", "Julia", "Manuella", "Larissa", "Camila",
	"Isabela", "Letícia", "Mariana", "Gabriela", "Helena", "Alice", "Laura",
	"Valentina", "Sophia", "Lívia", "Clara", "Yasmin", "Carolina", "Lorena",
	"Rafaela", "Bianca", "Fernanda", "Luana", "Natália", "Giovanna", "Bruna",
}

var lastNames = []string{
	"Silva", "Santos", "Oliveira", "Souza", "Rodrigues", "Ferreira", "Alves",
	"Pereira", "Lima", "Gomes", "Costa", "Ribeiro", "Martins", "Carvalho",
	"Almeida", "Lopes", "Sousa", "Fernandes", "Vieira", "Barbosa", "Rocha",
	"Dias", "Nascimento", "Andrade", "Moreira", "Nunes", "Marques", "Machado",
	"Mendes", "Freitas", "Cardoso", "Ramos", "Gonçalves", "Santana", "Teixeira",
}
