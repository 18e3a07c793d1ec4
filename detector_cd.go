package detectbank

// stepCD advances the central-difference integrator by one sample (§4.4):
//
//	z[n+1] = ((mu+j*omega)*z[n] + b*|z[n]|^2*z[n] + x[n-1]) * (2/sr) + z[n-1]
//
// then multiplied by (1-d). The forcing term uses the PREVIOUS input
// sample (xPrev1), not the sample passed in for this call — x is only
// consumed by the generic step() wrapper to become next call's xPrev1.
// CentralDifference detectors always carry b=0 (construction requires
// bandwidth 0).
func (d *Detector) stepCD(x float64) complex128 {
	z := d.zPrev1
	abs2 := real(z)*real(z) + imag(z)*imag(z)
	drive := complex(d.mu, d.omega)*z + complex(d.b*abs2, 0)*z + complex(d.xPrev1, 0)
	next := drive*complex(2/float64(d.sampleRate), 0) + d.zPrev2
	return next * complex(1-d.damping, 0)
}
