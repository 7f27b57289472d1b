package tensor

import "math/rand"

// FillRand fills t with small deterministic values derived from seed,
// roughly in (-scale/2, scale/2).
func FillRand(t Float, seed int64, scale float32) {
	rng := rand.New(rand.NewSource(seed))
	for i := range t.Data {
		t.Data[i] = (rng.Float32() - 0.5) * scale
	}
}
