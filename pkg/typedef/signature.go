package typedef

import (
	"fmt"
	"strings"
)

// GenericParameter is a type parameter declared by a generic method, with
// its bounds in signature form (e.g. Ljava/lang/Comparable<TT;>;).
type GenericParameter struct {
	Name            string
	ClassBound      string
	InterfaceBounds []string
}

func (g GenericParameter) String() string {
	var sb strings.Builder
	sb.WriteString(g.Name)
	sb.WriteByte(':')
	sb.WriteString(g.ClassBound)
	for _, b := range g.InterfaceBounds {
		sb.WriteByte(':')
		sb.WriteString(b)
	}
	return sb.String()
}

// parseSignature splits a method Signature attribute into its type
// parameters and the remainder (parameter, return and throws signatures).
func parseSignature(sig string) ([]GenericParameter, string, error) {
	if !strings.HasPrefix(sig, "<") {
		return nil, sig, nil
	}
	var params []GenericParameter
	i := 1
	for i < len(sig) && sig[i] != '>' {
		colon := strings.IndexByte(sig[i:], ':')
		if colon <= 0 {
			return nil, "", fmt.Errorf("invalid type parameter in signature %s", sig)
		}
		g := GenericParameter{Name: sig[i : i+colon]}
		i += colon + 1

		// class bound is optional
		if i < len(sig) && sig[i] != ':' && sig[i] != '>' {
			n, err := referenceSignatureLen(sig[i:])
			if err != nil {
				return nil, "", fmt.Errorf("%w in signature %s", err, sig)
			}
			g.ClassBound = sig[i : i+n]
			i += n
		}
		for i < len(sig) && sig[i] == ':' {
			i++
			n, err := referenceSignatureLen(sig[i:])
			if err != nil {
				return nil, "", fmt.Errorf("%w in signature %s", err, sig)
			}
			g.InterfaceBounds = append(g.InterfaceBounds, sig[i:i+n])
			i += n
		}
		params = append(params, g)
	}
	if i >= len(sig) {
		return nil, "", fmt.Errorf("unterminated type parameters in signature %s", sig)
	}
	return params, sig[i+1:], nil
}

// renderSignature is the inverse of parseSignature.
func renderSignature(params []GenericParameter, rest string) string {
	if len(params) == 0 {
		return rest
	}
	var sb strings.Builder
	sb.WriteByte('<')
	for _, g := range params {
		sb.WriteString(g.String())
	}
	sb.WriteByte('>')
	sb.WriteString(rest)
	return sb.String()
}

// referenceSignatureLen returns the length of the class, type variable or
// array signature at the start of s.
func referenceSignatureLen(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("truncated type signature")
	}
	switch s[0] {
	case 'L':
		depth := 0
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '<':
				depth++
			case '>':
				depth--
			case ';':
				if depth == 0 {
					return i + 1, nil
				}
			}
		}
		return 0, fmt.Errorf("unterminated class type signature")
	case 'T':
		semi := strings.IndexByte(s, ';')
		if semi == -1 {
			return 0, fmt.Errorf("unterminated type variable signature")
		}
		return semi + 1, nil
	case '[':
		if len(s) > 1 && strings.IndexByte("BCDFIJSZ", s[1]) >= 0 {
			return 2, nil
		}
		n, err := referenceSignatureLen(s[1:])
		return n + 1, err
	}
	return 0, fmt.Errorf("invalid type signature char '%c'", s[0])
}
