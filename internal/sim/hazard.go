package sim

import (
	"math"
	"math/rand"
)

// Bird is a horizontal flyer that bounces or shoves the avatar on contact.
type Bird struct {
	X         float64
	Y         float64
	Direction float64
	Speed     float64
}

// BirdContact classifies how the avatar met a bird.
type BirdContact uint8

const (
	BirdContactNone BirdContact = iota
	BirdContactTop
	BirdContactSide
)

func spawnBird(rng *rand.Rand, avatarY, viewWidth float64) Bird {
	dir := 1.0
	x := -BirdSpawnMargin
	if rng.Float64() < 0.5 {
		dir = -1
		x = viewWidth + BirdSpawnMargin
	}
	return Bird{
		X:         x,
		Y:         avatarY - BirdSpawnRange/2 + rng.Float64()*BirdSpawnRange,
		Direction: dir,
		Speed:     BirdMinSpeed + rng.Float64()*BirdSpeedSpread,
	}
}

func (b Bird) contact(a Avatar) BirdContact {
	width := BirdSize * 3
	height := BirdSize * 1.5
	left := b.X
	if b.Direction < 0 {
		left -= BirdSize
	}
	top := b.Y - BirdSize/2
	bottom := top + height

	if a.X+a.Width <= left || a.X >= left+width {
		return BirdContactNone
	}
	avatarBottom := a.Y + a.Height
	if avatarBottom >= top && avatarBottom <= top+height/2 && a.VY > 0 {
		return BirdContactTop
	}
	if a.Y < bottom && avatarBottom > top {
		return BirdContactSide
	}
	return BirdContactNone
}

// apply pushes the avatar along the bird's flight direction.
func (b Bird) apply(contact BirdContact, a *Avatar) {
	switch contact {
	case BirdContactTop:
		a.VY = BirdBounceForce
		a.VX = b.Direction * math.Max(math.Abs(b.Speed*2), 4)
		a.Jumping = true
		a.CanJump = false
		a.CanDoubleJump = true
	case BirdContactSide:
		a.VX = b.Direction * math.Max(BirdPushForce*2, 6)
		a.VY = BirdBounceForce * BirdSideBounce
		a.Jumping = true
	}
}

func (b Bird) visible(avatarY, viewWidth, viewHeight float64) bool {
	return b.X > -BirdDespawnSlack &&
		b.X < viewWidth+BirdDespawnSlack &&
		math.Abs(b.Y-avatarY) < viewHeight
}

// stepBirds spawns, moves and resolves every bird against the avatar. It
// reports the contact of the last bird that hit.
func stepBirds(birds []Bird, rng *rand.Rand, a *Avatar, viewWidth, viewHeight float64) ([]Bird, BirdContact) {
	if len(birds) < BirdMaxCount && rng.Float64() < BirdSpawnChance {
		birds = append(birds, spawnBird(rng, a.Y, viewWidth))
	}
	hit := BirdContactNone
	kept := birds[:0]
	for _, bird := range birds {
		bird.X += bird.Speed * bird.Direction
		if contact := bird.contact(*a); contact != BirdContactNone {
			bird.apply(contact, a)
			hit = contact
			continue
		}
		if bird.visible(a.Y, viewWidth, viewHeight) {
			kept = append(kept, bird)
		}
	}
	return kept, hit
}
