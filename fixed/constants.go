package fixed

/* =========================
   GAMEPLAY CONSTANTS
========================= */

const (
	TickRate                 = 60
	TickDuration       Fixed = 1092 // One / 60
	MatchDurationTicks       = 5400 // 90 seconds

	BaseMoveSpeed Fixed = 5 * One
	JumpVelocity  Fixed = 12 * One
	Gravity       Fixed = 30 * One

	ArenaHalfWidth  Fixed = 50 * One
	ArenaHalfHeight Fixed = 50 * One

	ScorePerRune = 10
	ScorePerKill = 100
)

// FormSpeeds is indexed by evolution tier. Bigger forms are slower.
var FormSpeeds = [5]Fixed{
	6 * One,      // Spark
	One * 11 / 2, // Glyph
	5 * One,      // Ward
	One * 9 / 2,  // Arcane
	4 * One,      // Ancient
}

// FormRadii is indexed by evolution tier.
var FormRadii = [5]Fixed{
	32768,  // 0.5
	45875,  // 0.7
	65536,  // 1.0
	91750,  // 1.4
	131072, // 2.0
}

// ScoreToEvolve holds the score needed to leave each of the first four tiers.
var ScoreToEvolve = [4]uint32{100, 300, 600, 1000}
