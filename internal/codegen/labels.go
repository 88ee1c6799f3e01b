package codegen

import "fmt"

// labeler hands out jump labels. Each construct kind has its own counter,
// except that if statements and conditional expressions share one. Counters
// start at 1 and live on the generator, so separate compilations never
// interfere.
type labeler struct {
	or   int
	and  int
	cond int
}

// logicalOr returns the labels for one || expression.
func (l *labeler) logicalOr() (snd, end string) {
	l.or++
	return fmt.Sprintf("_LOR_Snd_%d", l.or), fmt.Sprintf("_LOR_End_%d", l.or)
}

// logicalAnd returns the labels for one && expression.
func (l *labeler) logicalAnd() (snd, end string) {
	l.and++
	return fmt.Sprintf("_LAND_Snd_%d", l.and), fmt.Sprintf("_LAND_End_%d", l.and)
}

// conditional returns the labels for one ?: expression or if statement.
func (l *labeler) conditional() (els, post string) {
	l.cond++
	return fmt.Sprintf("_CondExpr_Else_%d", l.cond), fmt.Sprintf("_CondExpr_Post_%d", l.cond)
}
