package register

// AlignMoon derives the rigid transform that maps a frame's moon disk
// onto the reference frame's moon disk. A disk is rotationally
// symmetric, so only translation is solvable here: Theta stays 0 by
// invariant, and rotation between frames is resolved later by the sun
// transform. Scale is held at 1 since every frame shares image_scale.
func AlignMoon(target, reference Circle) RigidTransform {
	return RigidTransform{
		Tx: reference.X - target.X,
		Ty: reference.Y - target.Y,
	}
}
