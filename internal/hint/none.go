package hint

// none never produces a hint.
type none struct{}

func (none) Kind() Kind             { return KindNone }
func (none) Indicate(Request) bool  { return false }
func (none) ResetAnimation()        {}
func (none) Destroy()               {}
func (none) Phase() Phase           { return Idle }
func (none) Actors() int            { return 0 }
func (none) HidesSwitchClone() bool { return false }

// Disabled returns the strategy that never indicates.
func Disabled() Strategy { return none{} }
