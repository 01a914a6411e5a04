package core

import "mindwell-screening/pkg"

var helplines = []pkg.Helpline{
	{Name: "Tele-MANAS", Number: "14416", Desc: "Govt. of India (24/7)"},
	{Name: "iCALL", Number: "9152987821", Desc: "TISS (Mon-Sat)"},
}

// Helplines returns the crisis helpline list. The slice is a copy.
func Helplines() []pkg.Helpline {
	out := make([]pkg.Helpline, len(helplines))
	copy(out, helplines)
	return out
}
