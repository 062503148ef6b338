package civichall

const facilityPage = `<html><body>
<h3>2026年 1月20日(火)</h3>
<table class="koma-table">
	<tr>
		<td class="room">リハーサル室<br>（定員40名）</td>
		<td id="001#R01#2026/01/20#0">○</td><td>¥8,800</td>
		<td id="001#R01#2026/01/20#1">×</td><td>¥6,600</td>
		<td id="001#R01#2026/01/20#2"> ● </td><td>¥6,600</td>
		<td id="001#R01#2026/01/20#3">-</td><td></td>
	</tr>
</table>
<table class="koma-table">
	<tr>
		<td>大ホール</td>
		<td>○</td><td></td><td>○</td><td></td><td>○</td><td></td><td>○</td>
	</tr>
</table>
<table class="koma-table wide">
	<tr>
		<td>練習室① (2F)</td>
		<td>×</td><td></td>
		<td></td><td></td>
		<td>△</td><td></td>
		<td id="broken-id">○</td>
	</tr>
</table>
<table class="koma-table"></table>
</body></html>`
