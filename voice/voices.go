package voice

// VoiceInfo pairs a display name with the code the synthesis backend expects.
type VoiceInfo struct {
	Name string
	Code string
}

// AvailableVoices lists the synthesis voices the realtime backend offers.
func AvailableVoices() []VoiceInfo {
	return []VoiceInfo{
		{Name: "芊悦 (Cherry)", Code: "Cherry"},
		{Name: "晨煦 (Ethan)", Code: "Ethan"},
		{Name: "不吃鱼 (Nofish)", Code: "Nofish"},
		{Name: "詹妮弗 (Jennifer)", Code: "Jennifer"},
		{Name: "甜茶 (Ryan)", Code: "Ryan"},
		{Name: "卡捷琳娜 (Katerina)", Code: "Katerina"},
		{Name: "墨讲师 (Elias)", Code: "Elias"},
		{Name: "上海-阿珍 (Jada)", Code: "Jada"},
		{Name: "北京-晓东 (Dylan)", Code: "Dylan"},
		{Name: "四川-晴儿 (Sunny)", Code: "Sunny"},
		{Name: "南京-老李 (li)", Code: "li"},
		{Name: "陕西-秦川 (Marcus)", Code: "Marcus"},
		{Name: "闽南-阿杰 (Roy)", Code: "Roy"},
		{Name: "天津-李彼得 (Peter)", Code: "Peter"},
		{Name: "粤语-阿强 (Rocky)", Code: "Rocky"},
		{Name: "粤语-阿清 (Kiki)", Code: "Kiki"},
		{Name: "四川-程川 (Eric)", Code: "Eric"},
	}
}
