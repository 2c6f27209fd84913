package placement

// Bank holds the placement questions, grouped by level inside one slice so
// blockQuestions can filter it. Six per level keeps the test under five
// minutes while still separating the block verdicts.
var Bank = []Question{
	// A1: articles, basic verbs, everyday vocabulary.
	{Level: "A1", Text: "___ Haus ist groß.", Options: []string{"Der", "Die", "Das"}, CorrectIndex: 2},
	{Level: "A1", Text: "Ich ___ aus Russland.", Options: []string{"komme", "kommst", "kommt"}, CorrectIndex: 0},
	{Level: "A1", Text: "Wie heißt «кошка» по-немецки?", Options: []string{"der Hund", "die Katze", "das Pferd"}, CorrectIndex: 1},
	{Level: "A1", Text: "Er ___ Deutsch.", Options: []string{"sprecht", "spricht", "sprichst"}, CorrectIndex: 1},
	{Level: "A1", Text: "Wir ___ müde.", Options: []string{"sind", "seid", "bist"}, CorrectIndex: 0},
	{Level: "A1", Text: "___ Frau liest ein Buch.", Options: []string{"Der", "Die", "Das"}, CorrectIndex: 1},

	// A2: Perfekt, Akkusativ/Dativ, modal verbs.
	{Level: "A2", Text: "Gestern ___ ich ins Kino gegangen.", Options: []string{"habe", "bin", "war"}, CorrectIndex: 1},
	{Level: "A2", Text: "Ich sehe ___ Mann.", Options: []string{"der", "den", "dem"}, CorrectIndex: 1},
	{Level: "A2", Text: "Ich helfe ___ Kind.", Options: []string{"das", "den", "dem"}, CorrectIndex: 2},
	{Level: "A2", Text: "Er ___ heute nicht kommen.", Options: []string{"kann", "kannt", "könnt"}, CorrectIndex: 0},
	{Level: "A2", Text: "Wir haben die Hausaufgabe schon ___.", Options: []string{"machen", "gemacht", "machte"}, CorrectIndex: 1},
	{Level: "A2", Text: "Sie fährt ___ dem Bus zur Arbeit.", Options: []string{"mit", "bei", "von"}, CorrectIndex: 0},

	// B1: Nebensätze, Konjunktiv II, Passiv.
	{Level: "B1", Text: "Ich weiß nicht, ob er morgen ___.", Options: []string{"kommt", "kommen", "käme"}, CorrectIndex: 0},
	{Level: "B1", Text: "Wenn ich Zeit hätte, ___ ich mehr lesen.", Options: []string{"werde", "würde", "wurde"}, CorrectIndex: 1},
	{Level: "B1", Text: "Das Haus ___ letztes Jahr gebaut.", Options: []string{"wurde", "war", "hat"}, CorrectIndex: 0},
	{Level: "B1", Text: "Er tut so, ___ er alles wüsste.", Options: []string{"als ob", "ob", "wie"}, CorrectIndex: 0},
	{Level: "B1", Text: "___ des schlechten Wetters gingen wir spazieren.", Options: []string{"Wegen", "Trotz", "Während"}, CorrectIndex: 1},
	{Level: "B1", Text: "Die Prüfung, ___ ich Angst hatte, war leicht.", Options: []string{"vor der", "von der", "über die"}, CorrectIndex: 0},
}
