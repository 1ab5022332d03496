package deinflect

// Grammatical tags used by the Japanese table. They match the part of
// speech vocabulary of the dictionary package.
const (
	tagIchidan    = "v1"
	tagGodan      = "v5"
	tagKuru       = "vk"
	tagSuru       = "vs"
	tagIAdjective = "adj-i"
)

// godanRow lists the stems of one godan ending.
type godanRow struct {
	dict, a, i, e, o, te, ta string
}

var godanRows = []godanRow{
	{"う", "わ", "い", "え", "お", "って", "った"},
	{"く", "か", "き", "け", "こ", "いて", "いた"},
	{"ぐ", "が", "ぎ", "げ", "ご", "いで", "いだ"},
	{"す", "さ", "し", "せ", "そ", "して", "した"},
	{"つ", "た", "ち", "て", "と", "って", "った"},
	{"ぬ", "な", "に", "ね", "の", "んで", "んだ"},
	{"ぶ", "ば", "び", "べ", "ぼ", "んで", "んだ"},
	{"む", "ま", "み", "め", "も", "んで", "んだ"},
	{"る", "ら", "り", "れ", "ろ", "って", "った"},
}

// terminal rules only apply to raw input; the others chain onto forms that
// conjugate like an ichidan verb or an i-adjective.
var (
	terminal = []string(nil)
	fromVerb = []string{tagIchidan}
	fromAdjI = []string{tagIAdjective}
)

// Japanese returns the built-in rule table for Japanese verbs and
// i-adjectives.
func Japanese() []Rule {
	var rules []Rule
	add := func(name, strip, appendText string, from []string, to string) {
		rules = append(rules, Rule{Name: name, Strip: strip, Append: appendText, From: from, To: to})
	}

	// Ichidan verbs.
	for _, r := range []struct {
		name, strip string
		from        []string
	}{
		{"polite", "ます", terminal},
		{"polite past", "ました", terminal},
		{"polite negative", "ません", terminal},
		{"polite past negative", "ませんでした", terminal},
		{"polite volitional", "ましょう", terminal},
		{"past", "た", terminal},
		{"te", "て", terminal},
		{"negative", "ない", fromAdjI},
		{"classical negative", "ず", terminal},
		{"potential or passive", "られる", fromVerb},
		{"colloquial potential", "れる", fromVerb},
		{"causative", "させる", fromVerb},
		{"volitional", "よう", terminal},
		{"imperative", "ろ", terminal},
		{"conditional", "れば", terminal},
		{"tara", "たら", terminal},
		{"want", "たい", fromAdjI},
		{"progressive", "ている", fromVerb},
		{"progressive", "てる", fromVerb},
	} {
		add(r.name, r.strip, "る", r.from, tagIchidan)
	}

	// Godan verbs.
	for _, g := range godanRows {
		add("polite", g.i+"ます", g.dict, terminal, tagGodan)
		add("polite past", g.i+"ました", g.dict, terminal, tagGodan)
		add("polite negative", g.i+"ません", g.dict, terminal, tagGodan)
		add("polite past negative", g.i+"ませんでした", g.dict, terminal, tagGodan)
		add("polite volitional", g.i+"ましょう", g.dict, terminal, tagGodan)
		add("past", g.ta, g.dict, terminal, tagGodan)
		add("te", g.te, g.dict, terminal, tagGodan)
		add("tara", g.ta+"ら", g.dict, terminal, tagGodan)
		add("negative", g.a+"ない", g.dict, fromAdjI, tagGodan)
		add("classical negative", g.a+"ず", g.dict, terminal, tagGodan)
		add("passive", g.a+"れる", g.dict, fromVerb, tagGodan)
		add("causative", g.a+"せる", g.dict, fromVerb, tagGodan)
		add("potential", g.e+"る", g.dict, fromVerb, tagGodan)
		add("volitional", g.o+"う", g.dict, terminal, tagGodan)
		add("imperative", g.e, g.dict, terminal, tagGodan)
		add("conditional", g.e+"ば", g.dict, terminal, tagGodan)
		add("want", g.i+"たい", g.dict, fromAdjI, tagGodan)
		add("progressive", g.te+"いる", g.dict, fromVerb, tagGodan)
	}
	// 行く keeps っ in te and past.
	add("past", "いった", "いく", terminal, tagGodan)
	add("te", "いって", "いく", terminal, tagGodan)
	add("past", "行った", "行く", terminal, tagGodan)
	add("te", "行って", "行く", terminal, tagGodan)

	// Irregular くる.
	for _, stem := range []struct{ ki, ko, ku string }{{"き", "こ", "く"}, {"来", "来", "来"}} {
		dict := stem.ku + "る"
		add("polite", stem.ki+"ます", dict, terminal, tagKuru)
		add("polite past", stem.ki+"ました", dict, terminal, tagKuru)
		add("polite negative", stem.ki+"ません", dict, terminal, tagKuru)
		add("past", stem.ki+"た", dict, terminal, tagKuru)
		add("te", stem.ki+"て", dict, terminal, tagKuru)
		add("negative", stem.ko+"ない", dict, fromAdjI, tagKuru)
		add("potential or passive", stem.ko+"られる", dict, fromVerb, tagKuru)
		add("causative", stem.ko+"させる", dict, fromVerb, tagKuru)
		add("volitional", stem.ko+"よう", dict, terminal, tagKuru)
		add("imperative", stem.ko+"い", dict, terminal, tagKuru)
		add("conditional", stem.ku+"れば", dict, terminal, tagKuru)
		add("progressive", stem.ki+"ている", dict, fromVerb, tagKuru)
	}

	// Irregular する.
	for _, r := range []struct {
		name, strip string
		from        []string
	}{
		{"polite", "します", terminal},
		{"polite past", "しました", terminal},
		{"polite negative", "しません", terminal},
		{"polite past negative", "しませんでした", terminal},
		{"past", "した", terminal},
		{"te", "して", terminal},
		{"tara", "したら", terminal},
		{"negative", "しない", fromAdjI},
		{"classical negative", "せず", terminal},
		{"passive", "される", fromVerb},
		{"causative", "させる", fromVerb},
		{"potential", "できる", fromVerb},
		{"volitional", "しよう", terminal},
		{"imperative", "しろ", terminal},
		{"conditional", "すれば", terminal},
		{"want", "したい", fromAdjI},
		{"progressive", "している", fromVerb},
	} {
		add(r.name, r.strip, "する", r.from, tagSuru)
	}

	// I-adjectives.
	for _, r := range []struct {
		name, strip string
		from        []string
	}{
		{"past", "かった", terminal},
		{"negative", "くない", fromAdjI},
		{"te", "くて", terminal},
		{"adverbial", "く", terminal},
		{"conditional", "ければ", terminal},
		{"noun", "さ", terminal},
		{"seemingly", "そう", terminal},
		{"tara", "かったら", terminal},
		{"polite", "いです", terminal},
	} {
		add(r.name, r.strip, "い", r.from, tagIAdjective)
	}

	return rules
}
