package bike

type markOOOReq struct {
	Note string `json:"note"`
}
