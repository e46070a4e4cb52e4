package capture

// Trigger turns a per-tic pressed/released reading into one capture per press.
// The zero value is idle.
type Trigger struct {
	armed bool
}

// Observe feeds one tic. It returns true only on the tic where the button goes
// from released to pressed.
func (t *Trigger) Observe(pressed bool) bool {
	fire := pressed && !t.armed
	t.armed = pressed
	return fire
}
