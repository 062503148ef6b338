package htmlutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	doc, err := ParseString(context.Background(), "test", `
<table>
	<tr>
		<th id="room" data-room="rehearsal">
			リハーサル室
			<span>（定員40名）</span>
		</th>
	</tr>
</table>`)
	require.NoError(t, err)

	sel := doc.Find("#room")
	require.Equal(t, "リハーサル室 （定員40名）", CleanText(sel))
	require.Equal(t, "rehearsal", Attr(sel.Nodes[0], "data-room"))
	require.Equal(t, "", Attr(sel.Nodes[0], "missing"))
	require.Equal(t, "", Attr(nil, "id"))
}
