package store

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Relatório Física 2ª prova", "relatorio-fisica-2a-prova"},
		{"  Resumo   de História  ", "resumo-de-historia"},
		{"ÀÉÎÕÜ ç", "aeiou-c"},
		{"---", ""},
		{"Capítulo 10: Conclusão", "capitulo-10-conclusao"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
