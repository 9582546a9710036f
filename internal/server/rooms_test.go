package server

import "testing"

func TestPrivateRoomIDSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Alice", "Bob"},
		{"Bob", "Alice"},
		{"zed", "aaron"},
		{"Maria", "maria"},
	}

	for _, pair := range pairs {
		forward := PrivateRoomID(pair[0], pair[1])
		reverse := PrivateRoomID(pair[1], pair[0])
		if forward != reverse {
			t.Errorf("PrivateRoomID(%q, %q) = %q but reversed = %q", pair[0], pair[1], forward, reverse)
		}
	}

	if got := PrivateRoomID("Alice", "Bob"); got != "Alice_Bob" {
		t.Errorf("PrivateRoomID(Alice, Bob) = %q, want Alice_Bob", got)
	}
}

func TestCounterpartName(t *testing.T) {
	tests := []struct {
		room   string
		name   string
		want   string
		wantOK bool
	}{
		{"Alice_Bob", "Alice", "Bob", true},
		{"Alice_Bob", "Bob", "Alice", true},
		{"Alice_Bob", "Carol", "", false},
		{"Alice", "Alice", "", false},
	}

	for _, tt := range tests {
		got, ok := CounterpartName(tt.room, tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CounterpartName(%q, %q) = (%q, %v), want (%q, %v)",
				tt.room, tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValidDisplayName(t *testing.T) {
	if !ValidDisplayName("Alice") {
		t.Error("plain name rejected")
	}
	if ValidDisplayName("") {
		t.Error("empty name accepted")
	}
	if ValidDisplayName("Alice_B") {
		t.Error("name containing separator accepted; room ids would be ambiguous")
	}
}
