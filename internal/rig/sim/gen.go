package sim

// Deterministic hash-noise terrain for embedded runs: a solid rock slab
// at tunnel level and headroom height around the base, salted with ore
// pockets and the occasional gravel pour. The base cell and its headroom
// stay open.

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Generate fills a square slab of rock of the given radius around the
// base, at tunnel level (y=0) and headroom (y=1), leaving the base
// column open. Per-mille rates pick ore and gravel cells from the hash.
func Generate(r *Rig, seed int64, radius int) {
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			for y := 0; y <= 1; y++ {
				if x == 0 && z == 0 {
					continue
				}
				p := Vec3{X: x, Y: y, Z: z}
				n := hash3(seed, x, y, z) % 1000
				switch {
				case n < 15:
					r.SetBlock(p, "CRYSTAL_ORE")
				case n < 25:
					r.SetBlock(p, "IRON_ORE")
				case n < 45:
					r.SetBlock(p, "GRAVEL")
					r.SetPour(p, int(n%3))
				default:
					r.SetBlock(p, "STONE")
				}
			}
		}
	}
}
