package utils

type ColorFloat [4]float32

func (c *ColorFloat) RGBA() (r, g, b, a uint32) {
	const mf = float32(256*256 - 1)
	r = uint32(c[0] * mf)
	g = uint32(c[1] * mf)
	b = uint32(c[2] * mf)
	a = uint32(c[3] * mf)
	return
}

// ColorFromHex unpacks a 0xRRGGBB integer, alpha is always 1
func ColorFromHex(hex int64) ColorFloat {
	return ColorFloat{
		float32((hex>>16)&0xff) / 255,
		float32((hex>>8)&0xff) / 255,
		float32(hex&0xff) / 255,
		1.0,
	}
}

func (c ColorFloat) Hex() int64 {
	clamp := func(v float32) int64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 0xff
		}
		return int64(v*255 + 0.5)
	}
	return clamp(c[0])<<16 | clamp(c[1])<<8 | clamp(c[2])
}

func (c ColorFloat) RGB() [3]float32 {
	return [3]float32{c[0], c[1], c[2]}
}
