package core

import "testing"

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name string
		ords []DBOrdering
		want string
	}{
		{name: "none", want: ""},
		{name: "single", ords: []DBOrdering{{Field: "wins"}}, want: "ORDER BY wins DESC"},
		{
			name: "tie breakers",
			ords: []DBOrdering{{Field: "wins"}, {Field: "total_points_earned"}, {Field: "student_id", Ascending: true}},
			want: "ORDER BY wins DESC, total_points_earned DESC, student_id ASC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OrderBy(tt.ords...); got != tt.want {
				t.Errorf("OrderBy() = %q, want %q", got, tt.want)
			}
		})
	}
}
