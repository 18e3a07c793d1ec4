package detectbank

// rk4Slope evaluates dz/dt = (mu+j*omega)*z + b*|z|^2*z + x at the given
// state and forcing value.
func (d *Detector) rk4Slope(z complex128, x float64) complex128 {
	abs2 := real(z)*real(z) + imag(z)*imag(z)
	return complex(d.mu, d.omega)*z + complex(d.b*abs2, 0)*z + complex(x, 0)
}

// stepRK4 advances a classical RK4 step of size 2/sr (h below is the
// half-step 1/sr), starting from the
// state two samples back (zPrev2) and landing on the state for this
// sample. Forcing is evaluated at its exact sample for each of the four
// stages: xPrev2 (the step's start, two samples back), xPrev1 twice (the
// midpoint, one sample back), and the current sample x (the endpoint) —
// this is why RK4Detector keeps two samples of input history instead of
// CentralDifference's one. The result is multiplied by (1-d).
func (d *Detector) stepRK4(x float64) complex128 {
	h := 1 / float64(d.sampleRate)
	u0 := d.zPrev2

	k0 := d.rk4Slope(u0, d.xPrev2)
	u1 := u0 + k0*complex(h, 0)
	k1 := d.rk4Slope(u1, d.xPrev1)
	u2 := u0 + k1*complex(h, 0)
	k2 := d.rk4Slope(u2, d.xPrev1)
	u3 := u0 + k2*complex(2*h, 0)
	k3 := d.rk4Slope(u3, x)

	next := u0 + (k0+2*k1+2*k2+k3)*complex(h/3, 0)
	return next * complex(1-d.damping, 0)
}
