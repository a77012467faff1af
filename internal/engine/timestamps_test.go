package engine

import (
	"reflect"
	"testing"
)

func TestParseTimestamps(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Section
	}{
		{
			name: "plain lines mixed forms",
			text: "Tracklist\n0:00 Intro\n1:23 Verse\n1:02:03 Outro",
			want: []Section{
				{StartTime: 0, EndTime: 83, Title: "Intro"},
				{StartTime: 83, EndTime: 3723, Title: "Verse"},
				{StartTime: 3723, EndTime: 7323, Title: "Outro"},
			},
		},
		{
			name: "comment markup",
			text: `<a href="https://www.youtube.com/watch?v=abc&amp;t=0">0:00</a> Intro<br><a href="https://www.youtube.com/watch?v=abc&amp;t=296">4:56</a> Part Two<br>`,
			want: []Section{
				{StartTime: 0, EndTime: 296, Title: "Intro"},
				{StartTime: 296, EndTime: 3896, Title: "Part Two"},
			},
		},
		{
			name: "separators and entities",
			text: "00:00:10 - Rock &amp; Roll\n00:05:00 | Blues:",
			want: []Section{
				{StartTime: 10, EndTime: 300, Title: "Rock & Roll"},
				{StartTime: 300, EndTime: 3900, Title: "Blues"},
			},
		},
		{
			name: "missing title gets index default",
			text: "0:00\n2:00 Second",
			want: []Section{
				{StartTime: 0, EndTime: 120, Title: "section_0"},
				{StartTime: 120, EndTime: 3720, Title: "Second"},
			},
		},
		{
			name: "embedded timestamp splits title",
			text: "0:00 Song 2:30 remix",
			want: []Section{
				{StartTime: 0, EndTime: 150, Title: "Song"},
				{StartTime: 150, EndTime: 3750, Title: "remix"},
			},
		},
		{
			name: "single token",
			text: "starts at 10:00 Main",
			want: []Section{
				{StartTime: 600, EndTime: 4200, Title: "Main"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamps(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTimestamps() =\n %+v\nwant\n %+v", got, tt.want)
			}
		})
	}
}

func TestParseTimestampsNoTokens(t *testing.T) {
	for _, text := range []string{"", "no times here", "<b>bold</b> text", "ratio 1:2 and 10:30am", "<<<>>>"} {
		got := ParseTimestamps(text)
		if len(got) != 0 {
			t.Errorf("ParseTimestamps(%q) = %+v, want empty", text, got)
		}
	}
}

func TestParseTimestampsContiguous(t *testing.T) {
	text := "0:00:00 a 0:03:10 b 0:07:45 c 0:12:00 d 1:00:00 e"
	got := ParseTimestamps(text)
	if len(got) != 5 {
		t.Fatalf("expected 5 sections, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartTime < got[i-1].StartTime {
			t.Errorf("start_time decreased at %d: %d < %d", i, got[i].StartTime, got[i-1].StartTime)
		}
		if got[i-1].EndTime != got[i].StartTime {
			t.Errorf("section %d end_time = %d, want %d", i-1, got[i-1].EndTime, got[i].StartTime)
		}
	}
	last := got[len(got)-1]
	if last.EndTime != last.StartTime+3600 {
		t.Errorf("last end_time = %d, want %d", last.EndTime, last.StartTime+3600)
	}
}
