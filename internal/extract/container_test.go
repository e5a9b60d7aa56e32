package extract

import (
	"testing"
	"time"
)

var zeroTime time.Time

func TestObservedContainer(t *testing.T) {
	tests := []struct {
		markup string
		want   string
	}{
		{`<div id="root"><div><main id="m"><div class="server-list" id="want"></div></main></div></div>`, "want"},
		{`<div class="x-server-info-y" id="want"></div>`, "want"},
		{`<div id="root"><div><main id="want"></main></div></div>`, "want"},
		{`<body id="want"><p>hi</p></body>`, "want"},
	}
	for _, tt := range tests {
		doc := mustDoc(t, tt.markup)
		got, _ := ObservedContainer(doc).Attr("id")
		if got != tt.want {
			t.Errorf("ObservedContainer(%s) id = %q, want %q", tt.markup, got, tt.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := mustDoc(t, `<div class="server-list">`+card("A", "剩余天数: 1")+`</div><footer>1</footer>`)
	b := mustDoc(t, `<div class="server-list">`+card("A", "剩余天数: 1")+`</div><footer>2</footer>`)
	c := mustDoc(t, `<div class="server-list">`+card("A", "剩余天数: 2")+`</div><footer>1</footer>`)

	fa := Fingerprint(ObservedContainer(a))
	if fb := Fingerprint(ObservedContainer(b)); fa != fb {
		t.Error("changes outside the container should not change the fingerprint")
	}
	if fc := Fingerprint(ObservedContainer(c)); fa == fc {
		t.Error("changes inside the container should change the fingerprint")
	}
}
