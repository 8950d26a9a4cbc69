package sentiment

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnmarshalKeepsKeyOrder(t *testing.T) {
	var s Scores
	require.NoError(t, json.Unmarshal([]byte(`{"surprise":0.3,"anger":0.5,"joy":0.9}`), &s))

	labels := []string{}
	for _, e := range s.Emotions() {
		labels = append(labels, e.Label)
	}
	require.Equal(t, []string{"surprise", "anger", "joy"}, labels)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"surprise":0.3,"anger":0.5,"joy":0.9}`, string(out))
	require.Less(t, strings.Index(string(out), "surprise"), strings.Index(string(out), "anger"))
	require.Less(t, strings.Index(string(out), "anger"), strings.Index(string(out), "joy"))
}

func TestUnmarshalNull(t *testing.T) {
	var s Scores
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	require.Equal(t, 0, s.Len())
}

func TestUnmarshalRejectsNonNumbers(t *testing.T) {
	var s Scores
	require.Error(t, json.Unmarshal([]byte(`{"joy":"lots"}`), &s))
}

func TestZeroValue(t *testing.T) {
	var s Scores
	require.Equal(t, 0, s.Len())
	require.Nil(t, s.Emotions())
	_, ok := s.Get("joy")
	require.False(t, ok)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	require.Equal(t, `{}`, string(out))
}

func TestRankedBreaksTiesByInputOrder(t *testing.T) {
	s := NewScores(
		Emotion{"joy", 0.9},
		Emotion{"anger", 0.5},
		Emotion{"fear", 0.5},
		Emotion{"neutral", 0.1},
	)

	ranked := s.Ranked()
	require.Equal(t, "joy", ranked[0].Label)
	require.Equal(t, "anger", ranked[1].Label)
	require.Equal(t, "fear", ranked[2].Label)
	require.Equal(t, "neutral", ranked[3].Label)

	top := s.Top(3)
	require.Equal(t, map[string]bool{"joy": true, "anger": true, "fear": true}, top)
	require.False(t, top["neutral"])
}

func TestTopWithFewerThanN(t *testing.T) {
	s := NewScores(Emotion{"joy", 0.8})
	require.Equal(t, map[string]bool{"joy": true}, s.Top(3))
}

func TestCloneIsIndependent(t *testing.T) {
	orig := NewScores(Emotion{"joy", 0.8})
	clone := orig.Clone()
	clone.m.Set("joy", 0.1)

	v, _ := orig.Get("joy")
	require.Equal(t, 0.8, v)
}

func TestFromMapSortsLabels(t *testing.T) {
	s := FromMap(map[string]float64{"sadness": 0.2, "anger": 0.7})
	require.Equal(t, []Emotion{{"anger", 0.7}, {"sadness", 0.2}}, s.Emotions())
	require.Equal(t, map[string]float64{"sadness": 0.2, "anger": 0.7}, s.Map())
}
